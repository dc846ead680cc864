package indexer

import "fmt"

// Pipeline stages reported by RunError.
const (
	StageRead      = "read"
	StageTransform = "transform"
	StagePublish   = "publish"
	StageTruncate  = "truncate"
	StageList      = "list"
	StageFetch     = "fetch"
	StageReload    = "reload"
	StageCommit    = "commit"
	StageCanceled  = "canceled"
)

// RunError is an indexing run that stopped at Stage.
type RunError struct {
	Entity string
	Stage  string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("index %s: %s: %v", e.Entity, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

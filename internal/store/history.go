package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// RunStatus mirrors the status column of the history tables.
type RunStatus string

// Run statuses persisted in the history tables.
const (
	RunWorking   RunStatus = "working"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// RunHistory records one crawl or index run for a key (a batch name or a
// contest id).
type RunHistory struct {
	// ID is a UUIDv7 assigned when the run starts.
	ID string
	// Key is the batch name or contest id the run belongs to.
	Key string
	// StartedAt is the watermark candidate once the run completes.
	StartedAt time.Time
	// FinishedAt is nil while the run is working.
	FinishedAt *time.Time
	// Status is working, completed or aborted.
	Status RunStatus
}

// Watermark returns the unix second a later run may stop at.
func (h *RunHistory) Watermark() int64 {
	if h == nil || h.Status != RunCompleted {
		return 0
	}
	return h.StartedAt.Unix()
}

// StartOptions configures HistoryStore.Start.
type StartOptions struct {
	// Tx nests the insert in the caller's transaction when set.
	Tx pgx.Tx
}

// StartOption mutates StartOptions.
type StartOption func(*StartOptions)

// WithTx makes Start insert through the caller's transaction.
func WithTx(tx pgx.Tx) StartOption {
	return func(o *StartOptions) {
		o.Tx = tx
	}
}

// HistoryStore tracks the lifecycle of runs so interrupted runs can resume.
type HistoryStore interface {
	// Start inserts a new working record.
	Start(ctx context.Context, key string, opts ...StartOption) (*RunHistory, error)
	// Complete moves a working record to completed. No-op otherwise.
	Complete(ctx context.Context, h *RunHistory) error
	// Abort moves a working record to aborted. No-op otherwise.
	Abort(ctx context.Context, h *RunHistory) error
	// LatestCompleted returns the newest completed record for key, or nil.
	LatestCompleted(ctx context.Context, key string) (*RunHistory, error)
}

package store

import "context"

// RowSource is a lazy, finite, forward-only sequence of rows. Next returns
// false once the sequence is exhausted or failed; Err reports the failure.
// A RowSource cannot be restarted.
type RowSource[T any] interface {
	Next(ctx context.Context) bool
	Row() (T, error)
	Err() error
	Close()
}

// ContestRepository persists contests.
type ContestRepository interface {
	UpsertContests(ctx context.Context, contests []Contest, chunkSize int) error
	ListContests(ctx context.Context) ([]Contest, error)
}

// DifficultyRepository persists difficulty models.
type DifficultyRepository interface {
	UpsertDifficulties(ctx context.Context, difficulties []Difficulty, chunkSize int) error
}

// ProblemRepository persists problems and exposes known ids for diffing.
type ProblemRepository interface {
	ProblemIDs(ctx context.Context) (map[string]struct{}, error)
	UpsertProblems(ctx context.Context, problems []Problem, chunkSize int) error
	StreamProblems(ctx context.Context) (RowSource[ProblemRow], error)
}

// SubmissionRepository persists submissions.
type SubmissionRepository interface {
	// UpsertSubmissions writes every chunk inside one transaction.
	UpsertSubmissions(ctx context.Context, submissions []Submission, chunkSize int) error
	StreamSubmissions(ctx context.Context, sinceEpochSecond int64) (RowSource[SubmissionRow], error)
}

// UserRepository persists users.
type UserRepository interface {
	// UpsertUsers writes every chunk inside one transaction.
	UpsertUsers(ctx context.Context, users []User, chunkSize int) error
	StreamUsers(ctx context.Context) (RowSource[User], error)
}

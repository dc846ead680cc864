package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// ContestSource lists every contest.
type ContestSource interface {
	Contests(ctx context.Context) ([]store.Contest, error)
}

// DifficultySource lists the difficulty model of every rated problem.
type DifficultySource interface {
	ProblemModels(ctx context.Context) ([]store.Difficulty, error)
}

// ProblemSource lists every problem.
type ProblemSource interface {
	Problems(ctx context.Context) ([]store.Problem, error)
}

// ProblemPageFetcher downloads a task statement.
type ProblemPageFetcher interface {
	FetchProblemPage(ctx context.Context, contestID, problemID string) (atcoder.ProblemPage, error)
}

// SubmissionSource returns one page of a contest's submissions, newest
// first. A page past the end is empty.
type SubmissionSource interface {
	FetchSubmissions(ctx context.Context, contestID string, page int) ([]store.Submission, error)
}

// RankingSource returns one page of the user ranking.
type RankingSource interface {
	FetchRanking(ctx context.Context, page int) ([]store.User, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock reads wall time.
type Clock interface {
	Now() time.Time
}

// Settings tunes one crawler.
type Settings struct {
	// Interval is slept after every remote request.
	Interval time.Duration
	// Retry is the number of extra attempts for a page that failed with a
	// transient error.
	Retry int
	// Backoff is slept before each retry, on top of Interval.
	Backoff   time.Duration
	ChunkSize int
}

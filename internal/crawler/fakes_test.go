package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/storage/memory"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

var errTransient = errors.Join(atcoder.ErrTransient, errors.New("502 bad gateway"))

type fakeSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
	return nil
}

func (s *fakeSleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func newRecorder(history store.HistoryStore) *runs.Recorder {
	return runs.NewRecorder(history, nil, nil)
}

func newHistory() *memory.HistoryStore {
	return memory.NewHistoryStore(func() time.Time { return time.Unix(5000, 0).UTC() })
}

// pagedSubmissions serves scripted pages; a nil page past the script is empty.
type pagedSubmissions struct {
	mu     sync.Mutex
	pages  map[string][][]store.Submission
	errs   []error // consumed one per call before serving pages
	calls  []int
	onCall func()
}

func (s *pagedSubmissions) FetchSubmissions(_ context.Context, contestID string, page int) ([]store.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, page)
	if s.onCall != nil {
		s.onCall()
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	pages := s.pages[contestID]
	if page > len(pages) {
		return nil, nil
	}
	return pages[page-1], nil
}

type contestRepo struct {
	mu       sync.Mutex
	stored   []store.Contest
	upserted []store.Contest
}

func (r *contestRepo) UpsertContests(_ context.Context, contests []store.Contest, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, contests...)
	return nil
}

func (r *contestRepo) ListContests(context.Context) ([]store.Contest, error) {
	return r.stored, nil
}

type submissionRepo struct {
	mu    sync.Mutex
	calls int
	rows  []store.Submission
	err   error
}

func (r *submissionRepo) UpsertSubmissions(_ context.Context, subs []store.Submission, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, subs...)
	return nil
}

func (r *submissionRepo) StreamSubmissions(context.Context, int64) (store.RowSource[store.SubmissionRow], error) {
	return nil, errors.New("not implemented")
}

type problemRepo struct {
	ids     map[string]struct{}
	batches [][]store.Problem
	failOn  int
}

func (r *problemRepo) ProblemIDs(context.Context) (map[string]struct{}, error) {
	return r.ids, nil
}

func (r *problemRepo) UpsertProblems(_ context.Context, problems []store.Problem, _ int) error {
	if r.failOn > 0 && len(r.batches)+1 == r.failOn {
		return store.Persistence("upsert problems", errors.New("constraint violation"))
	}
	r.batches = append(r.batches, append([]store.Problem(nil), problems...))
	return nil
}

func (r *problemRepo) StreamProblems(context.Context) (store.RowSource[store.ProblemRow], error) {
	return nil, errors.New("not implemented")
}

type userRepo struct {
	calls int
	rows  []store.User
}

func (r *userRepo) UpsertUsers(_ context.Context, users []store.User, _ int) error {
	r.calls++
	r.rows = append(r.rows, users...)
	return nil
}

func (r *userRepo) StreamUsers(context.Context) (store.RowSource[store.User], error) {
	return nil, errors.New("not implemented")
}

type difficultyRepo struct {
	rows []store.Difficulty
}

func (r *difficultyRepo) UpsertDifficulties(_ context.Context, ds []store.Difficulty, _ int) error {
	r.rows = append(r.rows, ds...)
	return nil
}

// MockRemote is a testify mock of the aggregator and site clients.
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Contests(ctx context.Context) ([]store.Contest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Contest), args.Error(1)
}

func (m *MockRemote) Problems(ctx context.Context) ([]store.Problem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Problem), args.Error(1)
}

func (m *MockRemote) ProblemModels(ctx context.Context) ([]store.Difficulty, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Difficulty), args.Error(1)
}

func (m *MockRemote) FetchProblemPage(ctx context.Context, contestID, problemID string) (atcoder.ProblemPage, error) {
	args := m.Called(ctx, contestID, problemID)
	return args.Get(0).(atcoder.ProblemPage), args.Error(1)
}

func (m *MockRemote) FetchRanking(ctx context.Context, page int) ([]store.User, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]store.User), args.Error(1)
}

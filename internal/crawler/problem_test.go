package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

func listing() []store.Problem {
	return []store.Problem{
		{ID: "abc100_a", ContestID: "abc100", ProblemIndex: "A"},
		{ID: "abc100_b", ContestID: "abc100", ProblemIndex: "B"},
		{ID: "abc101_a", ContestID: "abc101", ProblemIndex: "A"},
		{ID: "abc101_b", ContestID: "abc101", ProblemIndex: "B"},
	}
}

func TestDetectDiff(t *testing.T) {
	t.Parallel()

	remote := new(MockRemote)
	remote.On("Problems", mock.Anything).Return(listing(), nil)
	repo := &problemRepo{ids: map[string]struct{}{"abc100_a": {}, "abc101_a": {}}}
	c := NewProblemCrawler(remote, remote, repo, newRecorder(newHistory()), &fakeSleeper{}, Settings{ChunkSize: 10}, nil)

	missing, err := c.DetectDiff(context.Background(), false)
	require.NoError(t, err)
	ids := make([]string, 0, len(missing))
	for _, p := range missing {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"abc100_b", "abc101_b"}, ids)

	all, err := c.DetectDiff(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestProblemCrawlCommitsChunksAndSkipsMissingPages(t *testing.T) {
	t.Parallel()

	remote := new(MockRemote)
	remote.On("Problems", mock.Anything).Return(listing(), nil)
	remote.On("FetchProblemPage", mock.Anything, "abc100", "abc100_b").
		Return(atcoder.ProblemPage{}, fmt.Errorf("problem abc100_b: %w", atcoder.ErrNotFound))
	for _, p := range []store.Problem{listing()[0], listing()[2], listing()[3]} {
		remote.On("FetchProblemPage", mock.Anything, p.ContestID, p.ID).
			Return(atcoder.ProblemPage{URL: "https://atcoder.jp/" + p.ID, HTML: "<p>" + p.ID + "</p>"}, nil)
	}
	repo := &problemRepo{ids: map[string]struct{}{}}
	history := newHistory()
	sleeper := &fakeSleeper{}
	c := NewProblemCrawler(remote, remote, repo, newRecorder(history), sleeper, Settings{Interval: interval, ChunkSize: 2}, nil)

	require.NoError(t, c.Crawl(context.Background(), false))
	remote.AssertExpectations(t)

	require.Len(t, repo.batches, 2)
	assert.Len(t, repo.batches[0], 2)
	assert.Len(t, repo.batches[1], 1)
	assert.Equal(t, "https://atcoder.jp/abc100_a", repo.batches[0][0].URL)
	assert.Equal(t, "<p>abc101_b</p>", repo.batches[1][0].HTML)
	assert.Len(t, sleeper.Slept(), 4)
	assert.Equal(t, store.RunCompleted, history.Records()[0].Status)
}

func TestProblemCrawlPersistenceFailureKeepsEarlierChunks(t *testing.T) {
	t.Parallel()

	remote := new(MockRemote)
	remote.On("Problems", mock.Anything).Return(listing(), nil)
	remote.On("FetchProblemPage", mock.Anything, mock.Anything, mock.Anything).Return(atcoder.ProblemPage{HTML: "<p></p>"}, nil)
	repo := &problemRepo{ids: map[string]struct{}{}, failOn: 2}
	history := newHistory()
	c := NewProblemCrawler(remote, remote, repo, newRecorder(history), &fakeSleeper{}, Settings{ChunkSize: 2}, nil)

	err := c.Crawl(context.Background(), true)
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))
	assert.Len(t, repo.batches, 1)
	assert.Equal(t, store.RunAborted, history.Records()[0].Status)
}

func TestProblemCrawlRetriesTransientPage(t *testing.T) {
	t.Parallel()

	remote := new(MockRemote)
	remote.On("Problems", mock.Anything).Return(listing()[:1], nil)
	remote.On("FetchProblemPage", mock.Anything, "abc100", "abc100_a").Return(atcoder.ProblemPage{}, errTransient).Once()
	remote.On("FetchProblemPage", mock.Anything, "abc100", "abc100_a").Return(atcoder.ProblemPage{HTML: "<p>ok</p>"}, nil).Once()
	repo := &problemRepo{ids: map[string]struct{}{}}
	sleeper := &fakeSleeper{}
	c := NewProblemCrawler(remote, remote, repo, newRecorder(newHistory()), sleeper, Settings{Interval: interval, Retry: 1, Backoff: backoff, ChunkSize: 5}, nil)

	require.NoError(t, c.Crawl(context.Background(), false))
	remote.AssertNumberOfCalls(t, "FetchProblemPage", 2)
	require.Len(t, repo.batches, 1)
	assert.Equal(t, "<p>ok</p>", repo.batches[0][0].HTML)
	assert.Equal(t, []time.Duration{interval, backoff, interval}, sleeper.Slept())
}

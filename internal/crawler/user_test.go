package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

func TestUserCrawlWritesAllPagesOnce(t *testing.T) {
	t.Parallel()

	remote := new(MockRemote)
	remote.On("FetchRanking", mock.Anything, 1).Return([]store.User{{UserID: "tourist"}, {UserID: "jiangly"}}, nil)
	remote.On("FetchRanking", mock.Anything, 2).Return([]store.User{{UserID: "ecnerwala"}}, nil)
	remote.On("FetchRanking", mock.Anything, 3).Return([]store.User{}, nil)
	repo := &userRepo{}
	history := newHistory()
	c := NewUserCrawler(remote, repo, newRecorder(history), &fakeSleeper{}, Settings{ChunkSize: 100}, nil)

	require.NoError(t, c.Crawl(context.Background()))
	remote.AssertExpectations(t)
	assert.Equal(t, 1, repo.calls)
	assert.Len(t, repo.rows, 3)
	assert.Equal(t, store.RunCompleted, history.Records()[0].Status)
}

func TestUserCrawlCancellationPersistsNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	remote := new(MockRemote)
	remote.On("FetchRanking", mock.Anything, 1).Return([]store.User{{UserID: "tourist"}}, nil)
	remote.On("FetchRanking", mock.Anything, 2).
		Run(func(mock.Arguments) { cancel() }).
		Return([]store.User{{UserID: "jiangly"}}, nil)
	repo := &userRepo{}
	history := newHistory()
	c := NewUserCrawler(remote, repo, newRecorder(history), &fakeSleeper{}, Settings{ChunkSize: 100}, nil)

	err := c.Crawl(ctx)
	require.ErrorIs(t, err, ErrCanceled)
	remote.AssertNumberOfCalls(t, "FetchRanking", 2)
	assert.Zero(t, repo.calls)
	assert.Equal(t, store.RunAborted, history.Records()[0].Status)
}

func TestUserFetchIsNotInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	remote := new(MockRemote)
	remote.On("FetchRanking", mock.Anything, 1).
		Run(func(args mock.Arguments) {
			cancel()
			fetchCtx := args.Get(0).(context.Context)
			assert.NoError(t, fetchCtx.Err())
		}).
		Return([]store.User{{UserID: "tourist"}}, nil)
	c := NewUserCrawler(remote, &userRepo{}, newRecorder(newHistory()), &fakeSleeper{}, Settings{ChunkSize: 100}, nil)

	require.ErrorIs(t, c.Crawl(ctx), ErrCanceled)
}

// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/atcoder-search/internal/app"
	"github.com/JakeFAU/atcoder-search/internal/config"
	"github.com/JakeFAU/atcoder-search/internal/storage/local"
	"github.com/JakeFAU/atcoder-search/internal/storage/memory"
)

func TestNewBlobStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		t.Parallel()
		blobs, closer, err := app.NewBlobStore(ctx, config.StagingConfig{Provider: config.StagingMemory})
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.IsType(t, &memory.BlobStore{}, blobs)
	})

	t.Run("Local", func(t *testing.T) {
		t.Parallel()
		blobs, _, err := app.NewBlobStore(ctx, config.StagingConfig{Provider: config.StagingLocal, Dir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &local.BlobStore{}, blobs)
	})

	t.Run("LocalWithoutDir", func(t *testing.T) {
		t.Parallel()
		_, _, err := app.NewBlobStore(ctx, config.StagingConfig{Provider: config.StagingLocal})
		assert.Error(t, err)
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		_, _, err := app.NewBlobStore(ctx, config.StagingConfig{Provider: "s3"})
		assert.ErrorContains(t, err, "unknown staging provider")
	})
}

func TestSearchSelectsEntityCore(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		cores []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cores = append(cores, r.URL.Query().Get("core"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg := config.Config{Search: config.SearchConfig{
		BaseURL: srv.URL,
		Cores:   config.SearchCores{Problem: "problems", User: "users", Submission: "submissions"},
	}}
	a, err := app.New(context.Background(), cfg, nil, mock)
	require.NoError(t, err)

	for _, entity := range []string{"problem", "user", "submission"} {
		client, err := a.Search(entity)
		require.NoError(t, err)
		require.NoError(t, client.Reload(context.Background()))
	}
	assert.Equal(t, []string{"problems", "users", "submissions"}, cores)

	_, err = a.Search("contest")
	assert.Error(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

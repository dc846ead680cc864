package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

func TestListContestsNewestFirst(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, start_epoch_second").
		WillReturnRows(pgxmock.NewRows([]string{"id", "start_epoch_second", "duration_second", "title", "rate_change", "category"}).
			AddRow("abc002", int64(20), int64(6000), "ABC 002", " ~ 1999", "ABC").
			AddRow("abc001", int64(10), int64(6000), "ABC 001", "-", "ABC"))

	got, err := NewContestRepository(mock).ListContests(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "abc002", got[0].ID)
	assert.Equal(t, "ABC", got[1].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProblemIDs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id FROM problems").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("abc001_a").AddRow("abc001_b"))

	ids, err := NewProblemRepository(mock).ProblemIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "abc001_b")
}

func TestProblemIDsQueryFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id FROM problems").WillReturnError(errors.New("boom"))

	_, err = NewProblemRepository(mock).ProblemIDs(context.Background())
	require.True(t, store.IsPersistence(err))
}

func TestStreamSubmissionsSinceWatermark(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	exec := int64(12)
	mock.ExpectQuery("FROM submissions AS s").
		WithArgs(int64(500)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "epoch_second", "problem_id", "contest_id", "user_id",
			"language", "point", "length", "result", "execution_time",
			"problem_title", "contest_title", "category",
		}).AddRow(int64(7), int64(501), "abc001_a", "abc001", "tourist",
			"C++ (GCC 9.2.1)", float64(100), int64(200), "AC", &exec,
			"A. Example", "ABC 001", "ABC"))

	src, err := NewSubmissionRepository(mock).StreamSubmissions(context.Background(), 500)
	require.NoError(t, err)
	defer src.Close()

	var got []store.SubmissionRow
	for src.Next(context.Background()) {
		row, err := src.Row()
		require.NoError(t, err)
		got = append(got, row)
	}
	require.NoError(t, src.Err())
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "ABC 001", got[0].ContestTitle)
	require.NotNil(t, got[0].ExecutionTime)
	assert.Equal(t, int64(12), *got[0].ExecutionTime)
}

func TestRowSourceStopsOnCancellation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id FROM problems").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	rows, err := mock.Query(context.Background(), "SELECT id FROM problems")
	require.NoError(t, err)
	src := newRowSource(rows, func(r pgx.Rows) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, src.Next(ctx))
	cancel()
	require.False(t, src.Next(ctx))
	require.ErrorIs(t, src.Err(), context.Canceled)
	assert.False(t, store.IsPersistence(src.Err()))
}

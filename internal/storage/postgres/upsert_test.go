package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

func TestUpsertStatementShape(t *testing.T) {
	t.Parallel()

	spec := upsertSpec{table: "t", columns: []string{"a", "b", "c"}, conflict: []string{"a", "b"}}
	got := spec.statement(2)
	assert.Equal(t,
		"INSERT INTO t (a, b, c) VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT (a, b) DO UPDATE SET c = EXCLUDED.c",
		got)
}

func TestChunkBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunkBounds(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, chunkBounds(3, 10))
	assert.Empty(t, chunkBounds(0, 10))
	assert.Equal(t, [][2]int{{0, 4}}, chunkBounds(4, 0))
}

func TestChunkRowsStaysUnderBindLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5957, userUpsert.chunkRows(10000))
	assert.Equal(t, 5957, userUpsert.chunkRows(0))
	assert.Equal(t, 100, userUpsert.chunkRows(100))
	assert.Equal(t, 10922, contestUpsert.chunkRows(50000))
	for _, spec := range []upsertSpec{contestUpsert, difficultyUpsert, problemUpsert, submissionUpsert, userUpsert} {
		assert.LessOrEqual(t, spec.chunkRows(1<<20)*len(spec.columns), maxBindParams, spec.table)
	}
}

func TestUpsertUsersSplitsOversizedChunk(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	users := make([]store.User, 5958)
	for i := range users {
		users[i] = store.User{UserID: fmt.Sprintf("user%05d", i)}
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(userUpsert.statement(5957))).
		WillReturnResult(pgxmock.NewResult("INSERT", 5957))
	mock.ExpectExec(regexp.QuoteMeta(userUpsert.statement(1))).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewUserRepository(mock)
	require.NoError(t, repo.UpsertUsers(context.Background(), users, 10000))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupeKeepsLastInFirstPosition(t *testing.T) {
	t.Parallel()

	type kv struct {
		k string
		v int
	}
	in := []kv{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}}
	got := dedupe(in, func(x kv) string { return x.k })
	assert.Equal(t, []kv{{"a", 3}, {"b", 2}, {"c", 4}}, got)
}

func TestUpsertContestsCommitsEachChunk(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	contests := []store.Contest{
		{ID: "abc001", StartEpochSecond: 1, DurationSecond: 60, Title: "ABC 001", RateChange: " ~ 1199", Category: "ABC"},
		{ID: "abc002", StartEpochSecond: 2, DurationSecond: 60, Title: "ABC 002", RateChange: " ~ 1199", Category: "ABC"},
		{ID: "arc001", StartEpochSecond: 3, DurationSecond: 60, Title: "ARC 001", RateChange: " ~ 2799", Category: "ARC"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(contestUpsert.statement(2))).
		WithArgs("abc001", int64(1), int64(60), "ABC 001", " ~ 1199", "ABC",
			"abc002", int64(2), int64(60), "ABC 002", " ~ 1199", "ABC").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(contestUpsert.statement(1))).
		WithArgs("arc001", int64(3), int64(60), "ARC 001", " ~ 2799", "ARC").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewContestRepository(mock)
	require.NoError(t, repo.UpsertContests(context.Background(), contests, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertContestsStopsAtFailedChunk(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	contests := []store.Contest{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contests").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contests").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	repo := NewContestRepository(mock)
	err = repo.UpsertContests(context.Background(), contests, 1)
	require.Error(t, err)
	require.True(t, store.IsPersistence(err))
	assert.Contains(t, err.Error(), "chunk 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubmissionsSingleTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	subs := []store.Submission{
		{ID: 1, EpochSecond: 100, ContestID: "abc001"},
		{ID: 2, EpochSecond: 101, ContestID: "abc001"},
		{ID: 1, EpochSecond: 100, ContestID: "abc001", Result: "AC"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(submissionUpsert.statement(1))).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(submissionUpsert.statement(1))).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewSubmissionRepository(mock)
	require.NoError(t, repo.UpsertSubmissions(context.Background(), subs, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUsersRollsBackEverything(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	users := []store.User{{UserID: "tourist"}, {UserID: "snuke"}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	repo := NewUserRepository(mock)
	err = repo.UpsertUsers(context.Background(), users, 1)
	require.Error(t, err)
	require.True(t, store.IsPersistence(err))
	assert.Contains(t, err.Error(), "chunk 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	require.NoError(t, NewSubmissionRepository(mock).UpsertSubmissions(context.Background(), nil, 100))
	require.NoError(t, NewContestRepository(mock).UpsertContests(context.Background(), nil, 100))
	require.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

var submissionUpsert = upsertSpec{
	table: "submissions",
	columns: []string{
		"id", "epoch_second", "problem_id", "contest_id", "user_id",
		"language", "point", "length", "result", "execution_time",
	},
	conflict: []string{"id", "epoch_second"},
}

type submissionKey struct {
	id          int64
	epochSecond int64
}

// SubmissionRepository implements store.SubmissionRepository.
type SubmissionRepository struct {
	db DB
}

// NewSubmissionRepository wires the repository to db.
func NewSubmissionRepository(db DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// UpsertSubmissions writes every chunk inside one transaction, keyed by
// (id, epoch_second) so rejudged submissions keep both rows.
func (r *SubmissionRepository) UpsertSubmissions(ctx context.Context, subs []store.Submission, chunkSize int) error {
	subs = dedupe(subs, func(s store.Submission) submissionKey { return submissionKey{s.ID, s.EpochSecond} })
	rows := make([][]any, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []any{
			s.ID, s.EpochSecond, s.ProblemID, s.ContestID, s.UserID,
			s.Language, s.Point, s.Length, s.Result, s.ExecutionTime,
		})
	}
	return upsertAllChunks(ctx, r.db, submissionUpsert, rows, chunkSize)
}

// StreamSubmissions reads submissions newer than sinceEpochSecond joined with
// their problem and contest titles.
func (r *SubmissionRepository) StreamSubmissions(
	ctx context.Context,
	sinceEpochSecond int64,
) (store.RowSource[store.SubmissionRow], error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			s.id, s.epoch_second, s.problem_id, s.contest_id, s.user_id,
			s.language, s.point, s.length, s.result, s.execution_time,
			COALESCE(p.title, ''), COALESCE(c.title, ''), COALESCE(c.category, '')
		FROM submissions AS s
		LEFT JOIN problems AS p ON p.id = s.problem_id
		LEFT JOIN contests AS c ON c.id = s.contest_id
		WHERE s.epoch_second > $1`, sinceEpochSecond)
	if err != nil {
		return nil, store.Persistence("stream submissions", err)
	}
	return newRowSource(rows, scanSubmissionRow), nil
}

func scanSubmissionRow(rows pgx.Rows) (store.SubmissionRow, error) {
	var s store.SubmissionRow
	err := rows.Scan(
		&s.ID, &s.EpochSecond, &s.ProblemID, &s.ContestID, &s.UserID,
		&s.Language, &s.Point, &s.Length, &s.Result, &s.ExecutionTime,
		&s.ProblemTitle, &s.ContestTitle, &s.Category,
	)
	return s, err
}

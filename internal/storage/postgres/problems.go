package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

var problemUpsert = upsertSpec{
	table:    "problems",
	columns:  []string{"id", "contest_id", "problem_index", "name", "title", "url", "html"},
	conflict: []string{"id"},
}

// ProblemRepository implements store.ProblemRepository.
type ProblemRepository struct {
	db DB
}

// NewProblemRepository wires the repository to db.
func NewProblemRepository(db DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// ProblemIDs returns the ids of every stored problem.
func (r *ProblemRepository) ProblemIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM problems`)
	if err != nil {
		return nil, store.Persistence("list problem ids", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, store.Persistence("scan problem id", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list problem ids", err)
	}
	return ids, nil
}

// UpsertProblems writes problems in chunks, one transaction per chunk.
func (r *ProblemRepository) UpsertProblems(ctx context.Context, problems []store.Problem, chunkSize int) error {
	problems = dedupe(problems, func(p store.Problem) string { return p.ID })
	rows := make([][]any, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, []any{p.ID, p.ContestID, p.ProblemIndex, p.Name, p.Title, p.URL, p.HTML})
	}
	return upsertEachChunk(ctx, r.db, problemUpsert, rows, chunkSize)
}

// StreamProblems reads every problem joined with its contest and difficulty.
func (r *ProblemRepository) StreamProblems(ctx context.Context) (store.RowSource[store.ProblemRow], error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			p.id, p.contest_id, p.problem_index, p.name, p.title, p.url, p.html,
			c.title, c.start_epoch_second, c.duration_second, c.rate_change, c.category,
			d.difficulty, COALESCE(d.is_experimental, FALSE)
		FROM problems AS p
		JOIN contests AS c ON c.id = p.contest_id
		LEFT JOIN difficulties AS d ON d.problem_id = p.id`)
	if err != nil {
		return nil, store.Persistence("stream problems", err)
	}
	return newRowSource(rows, scanProblemRow), nil
}

func scanProblemRow(rows pgx.Rows) (store.ProblemRow, error) {
	var p store.ProblemRow
	err := rows.Scan(
		&p.ID, &p.ContestID, &p.ProblemIndex, &p.Name, &p.Title, &p.URL, &p.HTML,
		&p.ContestTitle, &p.StartEpochSecond, &p.DurationSecond, &p.RateChange, &p.Category,
		&p.Difficulty, &p.IsExperimental,
	)
	return p, err
}

package postgres

import (
	"context"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

var contestUpsert = upsertSpec{
	table:    "contests",
	columns:  []string{"id", "start_epoch_second", "duration_second", "title", "rate_change", "category"},
	conflict: []string{"id"},
}

// ContestRepository implements store.ContestRepository.
type ContestRepository struct {
	db DB
}

// NewContestRepository wires the repository to db.
func NewContestRepository(db DB) *ContestRepository {
	return &ContestRepository{db: db}
}

// UpsertContests writes contests in chunks, one transaction per chunk.
func (r *ContestRepository) UpsertContests(ctx context.Context, contests []store.Contest, chunkSize int) error {
	contests = dedupe(contests, func(c store.Contest) string { return c.ID })
	rows := make([][]any, 0, len(contests))
	for _, c := range contests {
		rows = append(rows, []any{c.ID, c.StartEpochSecond, c.DurationSecond, c.Title, c.RateChange, c.Category})
	}
	return upsertEachChunk(ctx, r.db, contestUpsert, rows, chunkSize)
}

// ListContests returns every stored contest, newest first.
func (r *ContestRepository) ListContests(ctx context.Context) ([]store.Contest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, start_epoch_second, duration_second, title, rate_change, category
		FROM contests
		ORDER BY start_epoch_second DESC`)
	if err != nil {
		return nil, store.Persistence("list contests", err)
	}
	defer rows.Close()

	var out []store.Contest
	for rows.Next() {
		var c store.Contest
		if err := rows.Scan(&c.ID, &c.StartEpochSecond, &c.DurationSecond, &c.Title, &c.RateChange, &c.Category); err != nil {
			return nil, store.Persistence("scan contest", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list contests", err)
	}
	return out, nil
}

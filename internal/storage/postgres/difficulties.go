package postgres

import (
	"context"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

var difficultyUpsert = upsertSpec{
	table: "difficulties",
	columns: []string{
		"problem_id", "slope", "intercept", "variance", "difficulty",
		"discrimination", "irt_loglikelihood", "irt_users", "is_experimental",
	},
	conflict: []string{"problem_id"},
}

// DifficultyRepository implements store.DifficultyRepository.
type DifficultyRepository struct {
	db DB
}

// NewDifficultyRepository wires the repository to db.
func NewDifficultyRepository(db DB) *DifficultyRepository {
	return &DifficultyRepository{db: db}
}

// UpsertDifficulties writes models in chunks, one transaction per chunk.
func (r *DifficultyRepository) UpsertDifficulties(ctx context.Context, ds []store.Difficulty, chunkSize int) error {
	ds = dedupe(ds, func(d store.Difficulty) string { return d.ProblemID })
	rows := make([][]any, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []any{
			d.ProblemID, d.Slope, d.Intercept, d.Variance, d.Difficulty,
			d.Discrimination, d.IrtLoglikelihood, d.IrtUsers, d.IsExperimental,
		})
	}
	return upsertEachChunk(ctx, r.db, difficultyUpsert, rows, chunkSize)
}

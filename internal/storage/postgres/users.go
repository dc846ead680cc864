package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

var userUpsert = upsertSpec{
	table: "users",
	columns: []string{
		"user_id", "rating", "highest_rating", "affiliation", "birth_year",
		"country", "crown", "join_count", "rank", "active_rank", "wins",
	},
	conflict: []string{"user_id"},
}

// UserRepository implements store.UserRepository.
type UserRepository struct {
	db DB
}

// NewUserRepository wires the repository to db.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertUsers writes every chunk inside one transaction: a user crawl is
// all-or-nothing.
func (r *UserRepository) UpsertUsers(ctx context.Context, users []store.User, chunkSize int) error {
	users = dedupe(users, func(u store.User) string { return u.UserID })
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{
			u.UserID, u.Rating, u.HighestRating, u.Affiliation, u.BirthYear,
			u.Country, u.Crown, u.JoinCount, u.Rank, u.ActiveRank, u.Wins,
		})
	}
	return upsertAllChunks(ctx, r.db, userUpsert, rows, chunkSize)
}

// StreamUsers reads every stored user.
func (r *UserRepository) StreamUsers(ctx context.Context) (store.RowSource[store.User], error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, rating, highest_rating, affiliation, birth_year,
			country, crown, join_count, rank, active_rank, wins
		FROM users`)
	if err != nil {
		return nil, store.Persistence("stream users", err)
	}
	return newRowSource(rows, scanUser), nil
}

func scanUser(rows pgx.Rows) (store.User, error) {
	var u store.User
	err := rows.Scan(
		&u.UserID, &u.Rating, &u.HighestRating, &u.Affiliation, &u.BirthYear,
		&u.Country, &u.Crown, &u.JoinCount, &u.Rank, &u.ActiveRank, &u.Wins,
	)
	return u, err
}

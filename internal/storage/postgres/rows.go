package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// rowSource adapts pgx.Rows to store.RowSource. It holds one connection for a
// single forward-only read and checks ctx at every row boundary.
type rowSource[T any] struct {
	rows   pgx.Rows
	scan   func(pgx.Rows) (T, error)
	err    error
	ctxErr error
}

func newRowSource[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) *rowSource[T] {
	return &rowSource[T]{rows: rows, scan: scan}
}

func (s *rowSource[T]) Next(ctx context.Context) bool {
	if s.err != nil || s.ctxErr != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.ctxErr = err
		s.rows.Close()
		return false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		return false
	}
	return true
}

func (s *rowSource[T]) Row() (T, error) {
	v, err := s.scan(s.rows)
	if err != nil {
		return v, store.Persistence("scan row", err)
	}
	return v, nil
}

func (s *rowSource[T]) Err() error {
	if s.ctxErr != nil {
		return s.ctxErr
	}
	return store.Persistence("stream rows", s.err)
}

func (s *rowSource[T]) Close() {
	s.rows.Close()
}

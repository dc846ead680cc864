package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

// upsertSpec describes a multi-row INSERT ... ON CONFLICT DO UPDATE keyed by
// an entity's natural key. Every non-key column is overwritten.
type upsertSpec struct {
	table    string
	columns  []string
	conflict []string
}

// maxBindParams is the Postgres limit on parameters in one statement.
const maxBindParams = 65535

// chunkRows caps size so one statement stays under maxBindParams. A
// non-positive size asks for the cap itself.
func (s upsertSpec) chunkRows(size int) int {
	limit := maxBindParams / len(s.columns)
	if size <= 0 || size > limit {
		return limit
	}
	return size
}

func (s upsertSpec) statement(rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.table, strings.Join(s.columns, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range s.columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(s.conflict, ", "))
	first := true
	for _, c := range s.columns {
		if slices.Contains(s.conflict, c) {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", c, c)
	}
	return b.String()
}

func (s upsertSpec) exec(ctx context.Context, ex execer, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*len(s.columns))
	for _, r := range rows {
		args = append(args, r...)
	}
	if _, err := ex.Exec(ctx, s.statement(len(rows)), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", s.table, err)
	}
	return nil
}

// chunkBounds splits n items into [start, end) windows of at most size items.
func chunkBounds(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
	}
	return out
}

// upsertEachChunk wraps every chunk in its own transaction. A failed chunk
// rolls back and stops the remaining chunks.
func upsertEachChunk(ctx context.Context, db DB, spec upsertSpec, rows [][]any, chunkSize int) error {
	for i, b := range chunkBounds(len(rows), spec.chunkRows(chunkSize)) {
		op := fmt.Sprintf("upsert %s chunk %d", spec.table, i)
		err := inTx(ctx, db, op, func(tx pgx.Tx) error {
			return spec.exec(ctx, tx, rows[b[0]:b[1]])
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertAllChunks writes every chunk inside a single transaction.
func upsertAllChunks(ctx context.Context, db DB, spec upsertSpec, rows [][]any, chunkSize int) error {
	if len(rows) == 0 {
		return nil
	}
	return inTx(ctx, db, "upsert "+spec.table, func(tx pgx.Tx) error {
		for i, b := range chunkBounds(len(rows), spec.chunkRows(chunkSize)) {
			if err := spec.exec(ctx, tx, rows[b[0]:b[1]]); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		return nil
	})
}

// dedupe keeps the last occurrence of every key so one statement never
// touches the same conflict target twice.
func dedupe[T any, K comparable](items []T, key func(T) K) []T {
	index := make(map[K]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

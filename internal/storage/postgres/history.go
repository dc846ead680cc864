package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// HistoryTable names a history table and the column holding the run key.
type HistoryTable struct {
	Name      string
	KeyColumn string
}

// History tables used by the crawlers and the indexer.
var (
	BatchHistories      = HistoryTable{Name: "batch_histories", KeyColumn: "name"}
	SubmissionHistories = HistoryTable{Name: "submission_crawl_histories", KeyColumn: "contest_id"}
)

// IDGenerator produces run ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// HistoryStore implements store.HistoryStore over one history table.
type HistoryStore struct {
	db    DB
	table HistoryTable
	ids   IDGenerator
	clock Clock
}

// NewHistoryStore validates the table names and builds a store.
func NewHistoryStore(db DB, table HistoryTable, ids IDGenerator, clock Clock) (*HistoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if !validTableName.MatchString(table.Name) || !validTableName.MatchString(table.KeyColumn) {
		return nil, fmt.Errorf("invalid history table %q (%q)", table.Name, table.KeyColumn)
	}
	if ids == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	return &HistoryStore{db: db, table: table, ids: ids, clock: clock}, nil
}

// Start inserts a working record, through the caller's transaction when one
// is supplied.
func (s *HistoryStore) Start(ctx context.Context, key string, opts ...store.StartOption) (*store.RunHistory, error) {
	var o store.StartOptions
	for _, opt := range opts {
		opt(&o)
	}
	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("history id: %w", err)
	}
	h := &store.RunHistory{
		ID:        id,
		Key:       key,
		StartedAt: s.clock.Now(),
		Status:    store.RunWorking,
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, started_at, status)
		VALUES ($1, $2, $3, $4)`, s.table.Name, s.table.KeyColumn)

	var ex execer = s.db
	if o.Tx != nil {
		ex = o.Tx
	}
	if _, err := ex.Exec(ctx, query, h.ID, h.Key, h.StartedAt, h.Status); err != nil {
		return nil, store.Persistence("start "+s.table.Name, err)
	}
	return h, nil
}

// Complete transitions a working record to completed.
func (s *HistoryStore) Complete(ctx context.Context, h *store.RunHistory) error {
	return s.finish(ctx, h, store.RunCompleted)
}

// Abort transitions a working record to aborted. A completed record is left
// untouched.
func (s *HistoryStore) Abort(ctx context.Context, h *store.RunHistory) error {
	return s.finish(ctx, h, store.RunAborted)
}

func (s *HistoryStore) finish(ctx context.Context, h *store.RunHistory, status store.RunStatus) error {
	if h == nil || h.Status != store.RunWorking {
		return nil
	}
	finishedAt := s.clock.Now()
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, finished_at = $2
		WHERE id = $3 AND status = $4`, s.table.Name)
	tag, err := s.db.Exec(ctx, query, status, finishedAt, h.ID, store.RunWorking)
	if err != nil {
		return store.Persistence(fmt.Sprintf("mark %s %s", s.table.Name, status), err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	h.Status = status
	h.FinishedAt = &finishedAt
	return nil
}

// LatestCompleted returns the most recent completed record for key, or nil
// when there is none.
func (s *HistoryStore) LatestCompleted(ctx context.Context, key string) (*store.RunHistory, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, started_at, finished_at, status
		FROM %s
		WHERE %s = $1 AND status = $2
		ORDER BY started_at DESC
		LIMIT 1`, s.table.KeyColumn, s.table.Name, s.table.KeyColumn)

	var h store.RunHistory
	err := s.db.QueryRow(ctx, query, key, store.RunCompleted).Scan(
		&h.ID,
		&h.Key,
		&h.StartedAt,
		&h.FinishedAt,
		&h.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Persistence("latest "+s.table.Name, err)
	}
	return &h, nil
}

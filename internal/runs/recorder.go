// Package runs wraps a unit of crawl or index work in a history record and
// announces how it finished.
package runs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/notify"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// Recorder starts a history record before a run and completes or aborts it
// afterwards.
type Recorder struct {
	history  store.HistoryStore
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewRecorder wires a Recorder. A nil notifier disables notifications.
func NewRecorder(history store.HistoryStore, notifier notify.Publisher, logger *zap.Logger) *Recorder {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{history: history, notifier: notifier, logger: logger.Named("runs")}
}

// Run records key under name (e.g. "crawl:submission" and a contest id; batch
// runs use the same value for both). The record is completed when fn
// returns nil and aborted on any error or cancellation. The abort write
// ignores ctx cancellation so a canceled run never stays working.
func (r *Recorder) Run(ctx context.Context, name, key string, fn func(ctx context.Context, h *store.RunHistory) error) error {
	h, err := r.history.Start(ctx, key)
	if err != nil {
		return fmt.Errorf("start run %s: %w", name, err)
	}
	logger := r.logger.With(zap.String("run", name), zap.String("key", key), zap.String("run_id", h.ID))
	logger.Debug("run started")

	runErr := fn(ctx, h)
	finishCtx := context.WithoutCancel(ctx)
	if runErr == nil {
		if err := r.history.Complete(ctx, h); err != nil {
			runErr = fmt.Errorf("complete run %s: %w", name, err)
		}
	}
	if runErr != nil {
		if err := r.history.Abort(finishCtx, h); err != nil {
			logger.Error("abort run", zap.Error(err))
			runErr = errors.Join(runErr, fmt.Errorf("abort run %s: %w", name, err))
		}
	}

	status := string(h.Status)
	metrics.ObserveRun(name, status)
	event := notify.Event{
		Name:       name,
		Key:        key,
		RunID:      h.ID,
		Status:     status,
		StartedAt:  h.StartedAt,
		FinishedAt: h.FinishedAt,
	}
	if runErr != nil {
		event.Error = runErr.Error()
		logger.Warn("run aborted", zap.Error(runErr))
	} else {
		logger.Info("run completed")
	}
	if err := r.notifier.Publish(finishCtx, event); err != nil {
		logger.Warn("publish run event", zap.Error(err))
	}
	return runErr
}

package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/metrics"
)

// pageLoop walks pages through a Pager. Fetches run without cancellation so
// an in-flight request is never cut short; ctx is checked between pages.
type pageLoop[T any] struct {
	entity    string
	contestID string
	settings  Settings
	sleeper   Sleeper
	logger    *zap.Logger
	fetch     func(ctx context.Context, page int) ([]T, error)
	// judge classifies a successfully fetched page.
	judge func(items []T) Outcome
}

func (l pageLoop[T]) run(ctx context.Context) ([]T, error) {
	pager := NewPager(l.settings.Retry)
	fetchCtx := context.WithoutCancel(ctx)
	var acc []T
	for {
		page, ok := pager.Begin()
		if !ok {
			return nil, fmt.Errorf("pager stopped in %s", pager.State().Phase)
		}
		if err := boundary(ctx); err != nil {
			return nil, err
		}

		items, fetchErr := l.fetch(fetchCtx, page)
		var outcome Outcome
		switch {
		case fetchErr == nil:
			outcome = l.judge(items)
			acc = append(acc, items...)
			metrics.ObservePage(l.entity, metrics.OutcomeOK)
		case atcoder.IsTransient(fetchErr):
			outcome = OutcomeTransient
			metrics.ObservePage(l.entity, metrics.OutcomeRetry)
		default:
			outcome = OutcomeFatal
			metrics.ObservePage(l.entity, metrics.OutcomeError)
		}

		state, err := pager.Record(outcome)
		if err != nil {
			return nil, err
		}

		if err := l.sleeper.Sleep(ctx, l.settings.Interval); err != nil {
			return nil, canceled(err)
		}

		switch state.Phase {
		case PhaseDone:
			l.logger.Debug("pagination finished", zap.String("contest_id", l.contestID), zap.Int("page", page), zap.Int("items", len(acc)))
			return acc, nil
		case PhaseFailed:
			return nil, &PageError{ContestID: l.contestID, Page: page, Err: fetchErr}
		case PhaseRetrying:
			metrics.ObserveRetry(l.entity)
			l.logger.Warn("retrying page",
				zap.String("contest_id", l.contestID),
				zap.Int("page", page),
				zap.Int("retries_left", state.Retries),
				zap.Error(fetchErr),
			)
			if err := l.sleeper.Sleep(ctx, l.settings.Backoff); err != nil {
				return nil, canceled(err)
			}
		}
	}
}

// untilEmpty continues while pages have items.
func untilEmpty[T any](items []T) Outcome {
	if len(items) == 0 {
		return OutcomeEmpty
	}
	return OutcomeItems
}

// single stops after the first successful fetch.
func single[T any]([]T) Outcome {
	return OutcomeCaughtUp
}

package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/categorize"
	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// ContestRunName keys contest crawl history.
const ContestRunName = "crawl:contest"

// ContestCrawler refreshes every contest and its category.
type ContestCrawler struct {
	source      ContestSource
	repo        store.ContestRepository
	categorizer *categorize.Categorizer
	recorder    *runs.Recorder
	settings    Settings
	logger      *zap.Logger
}

// NewContestCrawler wires a ContestCrawler. A nil categorizer uses the
// default rules.
func NewContestCrawler(
	source ContestSource,
	repo store.ContestRepository,
	categorizer *categorize.Categorizer,
	recorder *runs.Recorder,
	settings Settings,
	logger *zap.Logger,
) *ContestCrawler {
	if categorizer == nil {
		categorizer = categorize.New()
	}
	return &ContestCrawler{
		source:      source,
		repo:        repo,
		categorizer: categorizer,
		recorder:    recorder,
		settings:    settings,
		logger:      orNop(logger).Named("contest"),
	}
}

// Crawl fetches the contest listing, categorizes it and upserts it.
func (c *ContestCrawler) Crawl(ctx context.Context) error {
	return c.recorder.Run(ctx, ContestRunName, ContestRunName, func(ctx context.Context, _ *store.RunHistory) error {
		if err := boundary(ctx); err != nil {
			return err
		}
		contests, err := c.source.Contests(context.WithoutCancel(ctx))
		if err != nil {
			return fmt.Errorf("list contests: %w", err)
		}
		for i := range contests {
			contests[i].Category = string(c.categorizer.Categorize(contests[i]))
		}
		if err := boundary(ctx); err != nil {
			return err
		}
		if err := c.repo.UpsertContests(ctx, contests, c.settings.ChunkSize); err != nil {
			return err
		}
		metrics.ObserveUpsert("contest", len(contests))
		c.logger.Info("contests upserted", zap.Int("count", len(contests)))
		return nil
	})
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// DifficultyRunName keys difficulty crawl history.
const DifficultyRunName = "crawl:difficulty"

// DifficultyCrawler refreshes the estimated difficulty of every problem.
type DifficultyCrawler struct {
	source   DifficultySource
	repo     store.DifficultyRepository
	recorder *runs.Recorder
	settings Settings
	logger   *zap.Logger
}

// NewDifficultyCrawler wires a DifficultyCrawler.
func NewDifficultyCrawler(
	source DifficultySource,
	repo store.DifficultyRepository,
	recorder *runs.Recorder,
	settings Settings,
	logger *zap.Logger,
) *DifficultyCrawler {
	return &DifficultyCrawler{
		source:   source,
		repo:     repo,
		recorder: recorder,
		settings: settings,
		logger:   orNop(logger).Named("difficulty"),
	}
}

// Crawl fetches every problem model and upserts it.
func (c *DifficultyCrawler) Crawl(ctx context.Context) error {
	return c.recorder.Run(ctx, DifficultyRunName, DifficultyRunName, func(ctx context.Context, _ *store.RunHistory) error {
		if err := boundary(ctx); err != nil {
			return err
		}
		models, err := c.source.ProblemModels(context.WithoutCancel(ctx))
		if err != nil {
			return fmt.Errorf("list problem models: %w", err)
		}
		if err := boundary(ctx); err != nil {
			return err
		}
		if err := c.repo.UpsertDifficulties(ctx, models, c.settings.ChunkSize); err != nil {
			return err
		}
		metrics.ObserveUpsert("difficulty", len(models))
		c.logger.Info("difficulties upserted", zap.Int("count", len(models)))
		return nil
	})
}

package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// UserRunName keys user crawl history.
const UserRunName = "crawl:user"

// UserCrawler walks the ranking until an empty page and stores every user
// in a single transaction. A canceled or failed walk persists nothing.
type UserCrawler struct {
	source   RankingSource
	repo     store.UserRepository
	recorder *runs.Recorder
	sleeper  Sleeper
	settings Settings
	logger   *zap.Logger
}

// NewUserCrawler wires a UserCrawler.
func NewUserCrawler(
	source RankingSource,
	repo store.UserRepository,
	recorder *runs.Recorder,
	sleeper Sleeper,
	settings Settings,
	logger *zap.Logger,
) *UserCrawler {
	return &UserCrawler{
		source:   source,
		repo:     repo,
		recorder: recorder,
		sleeper:  sleeper,
		settings: settings,
		logger:   orNop(logger).Named("user"),
	}
}

// Crawl fetches every ranking page, then upserts the users. Cancellation is
// observed between pages and returns ErrCanceled.
func (c *UserCrawler) Crawl(ctx context.Context) error {
	return c.recorder.Run(ctx, UserRunName, UserRunName, func(ctx context.Context, _ *store.RunHistory) error {
		loop := pageLoop[store.User]{
			entity:   "user",
			settings: c.settings,
			sleeper:  c.sleeper,
			logger:   c.logger,
			fetch:    c.source.FetchRanking,
			judge:    untilEmpty[store.User],
		}
		users, err := loop.run(ctx)
		if err != nil {
			return err
		}
		if err := boundary(ctx); err != nil {
			return err
		}
		if err := c.repo.UpsertUsers(ctx, users, c.settings.ChunkSize); err != nil {
			return err
		}
		metrics.ObserveUpsert("user", len(users))
		c.logger.Info("users upserted", zap.Int("count", len(users)))
		return nil
	})
}

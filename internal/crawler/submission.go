package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// SubmissionRunName names submission crawl runs. Their history is keyed by
// contest id.
const SubmissionRunName = "crawl:submission"

// SubmissionOptions selects the contests to crawl.
type SubmissionOptions struct {
	// ContestIDs are crawled in order. Empty means every stored contest,
	// newest first.
	ContestIDs []string
	// SkipRecent skips a contest whose latest completed crawl started less
	// than SkipRecent ago. Zero crawls every contest.
	SkipRecent time.Duration
}

// SubmissionCrawler pages through each contest's submissions, newest first,
// until it reaches the previous completed crawl or the last page.
type SubmissionCrawler struct {
	source   SubmissionSource
	contests store.ContestRepository
	repo     store.SubmissionRepository
	history  store.HistoryStore
	recorder *runs.Recorder
	clock    Clock
	sleeper  Sleeper
	settings Settings
	logger   *zap.Logger
}

// NewSubmissionCrawler wires a SubmissionCrawler. history must be the store
// recorder writes to.
func NewSubmissionCrawler(
	source SubmissionSource,
	contests store.ContestRepository,
	repo store.SubmissionRepository,
	history store.HistoryStore,
	recorder *runs.Recorder,
	clock Clock,
	sleeper Sleeper,
	settings Settings,
	logger *zap.Logger,
) *SubmissionCrawler {
	return &SubmissionCrawler{
		source:   source,
		contests: contests,
		repo:     repo,
		history:  history,
		recorder: recorder,
		clock:    clock,
		sleeper:  sleeper,
		settings: settings,
		logger:   orNop(logger).Named("submission"),
	}
}

// Crawl crawls the selected contests one after another and stops at the
// first contest that fails.
func (c *SubmissionCrawler) Crawl(ctx context.Context, opts SubmissionOptions) error {
	ids := opts.ContestIDs
	if len(ids) == 0 {
		contests, err := c.contests.ListContests(ctx)
		if err != nil {
			return err
		}
		ids = make([]string, 0, len(contests))
		for _, contest := range contests {
			ids = append(ids, contest.ID)
		}
	}
	for _, id := range ids {
		if err := boundary(ctx); err != nil {
			return err
		}
		if err := c.CrawlContest(ctx, id, opts.SkipRecent); err != nil {
			return err
		}
	}
	return nil
}

// CrawlContest crawls one contest. Pages are fetched in increasing order;
// the page whose newest submission is at or below the watermark is the last
// one kept. Everything fetched is upserted in one transaction.
func (c *SubmissionCrawler) CrawlContest(ctx context.Context, contestID string, skipRecent time.Duration) error {
	logger := c.logger.With(zap.String("contest_id", contestID))
	latest, err := c.history.LatestCompleted(ctx, contestID)
	if err != nil {
		return fmt.Errorf("contest %s: %w", contestID, err)
	}
	if skipRecent > 0 && latest != nil && c.clock.Now().Sub(latest.StartedAt) < skipRecent {
		logger.Info("skipping recently crawled contest", zap.Time("last_started_at", latest.StartedAt))
		return nil
	}
	watermark := latest.Watermark()

	return c.recorder.Run(ctx, SubmissionRunName, contestID, func(ctx context.Context, h *store.RunHistory) error {
		loop := pageLoop[store.Submission]{
			entity:    "submission",
			contestID: contestID,
			settings:  c.settings,
			sleeper:   c.sleeper,
			logger:    logger.With(zap.String("run_id", h.ID)),
			fetch: func(ctx context.Context, page int) ([]store.Submission, error) {
				return c.source.FetchSubmissions(ctx, contestID, page)
			},
			judge: func(items []store.Submission) Outcome {
				return judgeSubmissions(items, watermark)
			},
		}
		subs, err := loop.run(ctx)
		if err != nil {
			return err
		}
		if err := boundary(ctx); err != nil {
			return err
		}
		if err := c.repo.UpsertSubmissions(ctx, subs, c.settings.ChunkSize); err != nil {
			return fmt.Errorf("contest %s: %w", contestID, err)
		}
		metrics.ObserveUpsert("submission", len(subs))
		logger.Info("submissions upserted", zap.Int("count", len(subs)), zap.Int64("watermark", watermark))
		return nil
	})
}

func judgeSubmissions(items []store.Submission, watermark int64) Outcome {
	if len(items) == 0 {
		return OutcomeEmpty
	}
	if items[0].EpochSecond <= watermark {
		return OutcomeCaughtUp
	}
	return OutcomeItems
}

package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// ProblemRunName keys problem crawl history.
const ProblemRunName = "crawl:problem"

// ProblemCrawler stores problems missing from the relational store together
// with their statement pages.
type ProblemCrawler struct {
	source   ProblemSource
	pages    ProblemPageFetcher
	repo     store.ProblemRepository
	recorder *runs.Recorder
	sleeper  Sleeper
	settings Settings
	logger   *zap.Logger
}

// NewProblemCrawler wires a ProblemCrawler.
func NewProblemCrawler(
	source ProblemSource,
	pages ProblemPageFetcher,
	repo store.ProblemRepository,
	recorder *runs.Recorder,
	sleeper Sleeper,
	settings Settings,
	logger *zap.Logger,
) *ProblemCrawler {
	return &ProblemCrawler{
		source:   source,
		pages:    pages,
		repo:     repo,
		recorder: recorder,
		sleeper:  sleeper,
		settings: settings,
		logger:   orNop(logger).Named("problem"),
	}
}

// DetectDiff returns the listed problems whose ids are not stored yet, in
// listing order. With all set it returns the whole listing.
func (c *ProblemCrawler) DetectDiff(ctx context.Context, all bool) ([]store.Problem, error) {
	listed, err := c.source.Problems(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	if all {
		return listed, nil
	}
	known, err := c.repo.ProblemIDs(ctx)
	if err != nil {
		return nil, err
	}
	missing := make([]store.Problem, 0, len(listed))
	for _, p := range listed {
		if _, ok := known[p.ID]; !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Crawl fetches the statement of every problem DetectDiff returns and
// upserts them one chunk at a time. Committed chunks survive a later
// failure. Problems whose page no longer exists are skipped.
func (c *ProblemCrawler) Crawl(ctx context.Context, all bool) error {
	return c.recorder.Run(ctx, ProblemRunName, ProblemRunName, func(ctx context.Context, _ *store.RunHistory) error {
		if err := boundary(ctx); err != nil {
			return err
		}
		targets, err := c.DetectDiff(ctx, all)
		if err != nil {
			return err
		}
		c.logger.Info("problems to crawl", zap.Int("count", len(targets)), zap.Bool("all", all))

		chunkSize := c.settings.ChunkSize
		if chunkSize <= 0 {
			chunkSize = 1
		}
		buf := make([]store.Problem, 0, chunkSize)
		flush := func() error {
			if len(buf) == 0 {
				return nil
			}
			if err := c.repo.UpsertProblems(ctx, buf, chunkSize); err != nil {
				return err
			}
			metrics.ObserveUpsert("problem", len(buf))
			buf = buf[:0]
			return nil
		}

		for _, p := range targets {
			page, err := c.fetchPage(ctx, p)
			if errors.Is(err, atcoder.ErrNotFound) {
				c.logger.Warn("problem page not found", zap.String("contest_id", p.ContestID), zap.String("problem_id", p.ID))
				continue
			}
			if err != nil {
				return err
			}
			p.URL = page.URL
			p.HTML = page.HTML
			buf = append(buf, p)
			if len(buf) >= chunkSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
}

func (c *ProblemCrawler) fetchPage(ctx context.Context, p store.Problem) (atcoder.ProblemPage, error) {
	loop := pageLoop[atcoder.ProblemPage]{
		entity:    "problem",
		contestID: p.ContestID,
		settings:  c.settings,
		sleeper:   c.sleeper,
		logger:    c.logger.With(zap.String("problem_id", p.ID)),
		fetch: func(ctx context.Context, _ int) ([]atcoder.ProblemPage, error) {
			page, err := c.pages.FetchProblemPage(ctx, p.ContestID, p.ID)
			if err != nil {
				return nil, err
			}
			return []atcoder.ProblemPage{page}, nil
		},
		judge: single[atcoder.ProblemPage],
	}
	pages, err := loop.run(ctx)
	if err != nil {
		return atcoder.ProblemPage{}, err
	}
	return pages[0], nil
}

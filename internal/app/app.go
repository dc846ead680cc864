// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the commands.
package app

import (
	"context"
	"errors"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/atcoder"
	"github.com/JakeFAU/atcoder-search/internal/clock/system"
	"github.com/JakeFAU/atcoder-search/internal/config"
	"github.com/JakeFAU/atcoder-search/internal/id/uuid"
	"github.com/JakeFAU/atcoder-search/internal/notify"
	"github.com/JakeFAU/atcoder-search/internal/notify/pubsub"
	"github.com/JakeFAU/atcoder-search/internal/policy/ratelimit"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/search/solr"
	"github.com/JakeFAU/atcoder-search/internal/storage"
	"github.com/JakeFAU/atcoder-search/internal/storage/gcs"
	"github.com/JakeFAU/atcoder-search/internal/storage/local"
	"github.com/JakeFAU/atcoder-search/internal/storage/memory"
	"github.com/JakeFAU/atcoder-search/internal/storage/postgres"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// App holds the shared services of one command invocation. It is built once
// in the root command and closed when the command returns.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	db     postgres.DB
	clock  *system.Clock

	batchRecorder      *runs.Recorder
	submissionHistory  store.HistoryStore
	submissionRecorder *runs.Recorder

	site       *atcoder.SiteClient
	aggregator *atcoder.AggregatorClient

	closers []func() error
}

// NewApp connects to Postgres and wires the history stores, the run
// recorders and the remote clients. It fails fast if any of them cannot be
// initialized.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, logger, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// New wires the services over an existing connection pool. The App takes
// ownership of db and closes it in Close.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, db postgres.DB) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, db: db, clock: system.New()}
	a.closers = append(a.closers, func() error { db.Close(); return nil })

	ids := uuid.New()
	batchHistory, err := postgres.NewHistoryStore(db, postgres.BatchHistories, ids, a.clock)
	if err != nil {
		return nil, fmt.Errorf("batch history: %w", err)
	}
	submissionHistory, err := postgres.NewHistoryStore(db, postgres.SubmissionHistories, ids, a.clock)
	if err != nil {
		return nil, fmt.Errorf("submission history: %w", err)
	}

	notifier, err := a.newNotifier(ctx)
	if err != nil {
		return nil, err
	}
	a.batchRecorder = runs.NewRecorder(batchHistory, notifier, logger)
	a.submissionHistory = submissionHistory
	a.submissionRecorder = runs.NewRecorder(submissionHistory, notifier, logger)

	limiter := ratelimit.New(ratelimit.Config{DefaultRPS: cfg.AtCoder.RequestsPerSecond, DefaultBurst: 1})
	fetchCfg := atcoder.Config{UserAgent: cfg.AtCoder.UserAgent, Timeout: cfg.AtCoder.Timeout}
	a.site = atcoder.NewSiteClient(cfg.AtCoder.BaseURL, atcoder.Credentials{
		Username: cfg.AtCoder.Username,
		Password: cfg.AtCoder.Password,
	}, fetchCfg, limiter)
	a.aggregator = atcoder.NewAggregatorClient(cfg.Aggregator.BaseURL, fetchCfg, limiter)

	logger.Info("application services initialized",
		zap.String("site", cfg.AtCoder.BaseURL),
		zap.String("aggregator", cfg.Aggregator.BaseURL),
	)
	return a, nil
}

func (a *App) newNotifier(ctx context.Context) (notify.Publisher, error) {
	if a.cfg.Notify.Topic == "" {
		return notify.Nop{}, nil
	}
	p, err := pubsub.New(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	a.closers = append(a.closers, p.Close)
	a.logger.Info("run notifications enabled", zap.String("topic", a.cfg.Notify.Topic))
	return p, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// DB returns the shared connection pool.
func (a *App) DB() postgres.DB { return a.db }

// Clock returns the wall clock, which also sleeps between requests.
func (a *App) Clock() *system.Clock { return a.clock }

// BatchRecorder records crawl, update and upload runs in batch_histories.
func (a *App) BatchRecorder() *runs.Recorder { return a.batchRecorder }

// SubmissionHistory is the per-contest submission crawl history.
func (a *App) SubmissionHistory() store.HistoryStore { return a.submissionHistory }

// SubmissionRecorder records submission crawls per contest.
func (a *App) SubmissionRecorder() *runs.Recorder { return a.submissionRecorder }

// Site returns the contest site client.
func (a *App) Site() *atcoder.SiteClient { return a.site }

// Aggregator returns the aggregator API client.
func (a *App) Aggregator() *atcoder.AggregatorClient { return a.aggregator }

// Search builds a client for the core that indexes entity.
func (a *App) Search(entity string) (*solr.Client, error) {
	core, err := a.cfg.Search.Core(entity)
	if err != nil {
		return nil, err
	}
	return solr.New(solr.Config{
		BaseURL: a.cfg.Search.BaseURL,
		Core:    core,
		Timeout: a.cfg.Search.Timeout,
	})
}

// Staging opens the configured staging store.
func (a *App) Staging(ctx context.Context) (storage.BlobStore, error) {
	blobs, closer, err := NewBlobStore(ctx, a.cfg.Staging)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return blobs, nil
}

// NewBlobStore opens the staging provider named by cfg. The returned closer
// may be nil.
func NewBlobStore(ctx context.Context, cfg config.StagingConfig) (storage.BlobStore, func() error, error) {
	switch cfg.Provider {
	case config.StagingMemory:
		return memory.NewBlobStore(), nil, nil
	case config.StagingLocal:
		blobs, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("local staging: %w", err)
		}
		return blobs, nil, nil
	case config.StagingGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		blobs, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs staging: %w", err)
		}
		return blobs, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown staging provider: %s", cfg.Provider)
	}
}

// Close shuts down every service in reverse order of creation.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

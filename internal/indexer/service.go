package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/runs"
	"github.com/JakeFAU/atcoder-search/internal/storage"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

var (
	// ErrNothingStaged is returned by Upload when no sealed staged run exists.
	ErrNothingStaged = errors.New("no staged batches")
	// ErrIncompleteRun marks a staged run without a manifest, or whose
	// batches do not match it.
	ErrIncompleteRun = errors.New("staged run is incomplete")
)

// Options selects how an update or upload run publishes.
type Options struct {
	// GenerateOnly stages batches without touching the search engine.
	GenerateOnly bool
	// Truncate deletes every document before the first post.
	Truncate bool
	// Optimize merges index segments on commit.
	Optimize bool
}

// Service runs update and upload runs for one search core.
type Service struct {
	engine   SearchEngine
	blobs    storage.BlobStore
	hasher   Hasher
	recorder *runs.Recorder
	cfg      Config
	logger   *zap.Logger
}

// NewService wires a Service. blobs may be nil when staging is unused.
func NewService(engine SearchEngine, blobs storage.BlobStore, hasher Hasher, recorder *runs.Recorder, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:   engine,
		blobs:    blobs,
		hasher:   hasher,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("indexer"),
	}
}

// Update indexes every row open yields. Staged batches are keyed by the run
// history id, so a later Upload can find the newest run.
func Update[R, D any](
	ctx context.Context,
	s *Service,
	entity string,
	open func(ctx context.Context) (store.RowSource[R], error),
	transform func(R) (D, error),
	opts Options,
) error {
	name := "update:" + entity
	return s.recorder.Run(ctx, name, name, func(ctx context.Context, h *store.RunHistory) error {
		logger := s.logger.With(zap.String("entity", entity), zap.String("run_id", h.ID))
		var (
			publisher Publisher
			staging   *StagingPublisher
		)
		if opts.GenerateOnly {
			if s.blobs == nil {
				return &RunError{Entity: entity, Stage: StagePublish, Err: errors.New("staging store is not configured")}
			}
			staging = NewStagingPublisher(s.blobs, s.hasher, h.ID)
			publisher = staging
		} else {
			if opts.Truncate {
				if err := s.engine.Truncate(ctx); err != nil {
					return &RunError{Entity: entity, Stage: StageTruncate, Err: err}
				}
			}
			publisher = NewDirectPublisher(s.engine)
		}

		src, err := open(ctx)
		if err != nil {
			return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageRead, Err: err})
		}
		stats, err := NewPipeline(entity, s.cfg, transform, publisher, logger).Run(ctx, src)
		if err != nil {
			return s.fail(ctx, opts, err)
		}
		logger.Info("documents published", zap.String("publisher", publisher.Name()), zap.Int64("documents", stats.Documents), zap.Int64("batches", stats.Batches))
		if staging != nil {
			if err := staging.Seal(ctx, entity, stats); err != nil {
				return &RunError{Entity: entity, Stage: StagePublish, Err: err}
			}
			return nil
		}
		return s.finish(ctx, entity, opts)
	})
}

// Upload posts every staged batch of runID, or of the newest staged run when
// runID is empty, then reloads and commits.
func (s *Service) Upload(ctx context.Context, entity, runID string, opts Options) error {
	name := "upload:" + entity
	return s.recorder.Run(ctx, name, name, func(ctx context.Context, _ *store.RunHistory) error {
		if s.blobs == nil {
			return &RunError{Entity: entity, Stage: StageList, Err: errors.New("staging store is not configured")}
		}
		if runID == "" {
			latest, err := s.LatestRun(ctx, entity)
			if err != nil {
				return &RunError{Entity: entity, Stage: StageList, Err: err}
			}
			runID = latest
		}
		logger := s.logger.With(zap.String("entity", entity), zap.String("staged_run", runID))
		manifest, keys, err := s.stagedRun(ctx, entity, runID)
		if err != nil {
			return &RunError{Entity: entity, Stage: StageList, Err: err}
		}
		if opts.Truncate {
			if err := s.engine.Truncate(ctx); err != nil {
				return &RunError{Entity: entity, Stage: StageTruncate, Err: err}
			}
		}
		var posted int
		for i, key := range keys {
			if err := ctx.Err(); err != nil {
				return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageCanceled, Err: err})
			}
			body, err := s.blobs.GetObject(ctx, key)
			if err != nil {
				return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageFetch, Err: err})
			}
			n, err := countDocuments(body)
			if err != nil {
				return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageFetch, Err: fmt.Errorf("%s: %w", key, err)})
			}
			if err := s.engine.Post(ctx, body); err != nil {
				return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StagePublish, Err: fmt.Errorf("%s: %w", key, err)})
			}
			posted += n
			metrics.ObserveBatch(entity, "upload", n)
			logger.Debug("staged batch posted", zap.Int("batch", i+1), zap.String("key", key), zap.Int("documents", n))
		}
		logger.Info("staged batches posted",
			zap.Int("batches", len(keys)),
			zap.Int("documents", posted),
			zap.Int64("staged_documents", manifest.Documents),
		)
		return s.finish(ctx, entity, opts)
	})
}

// stagedRun reads the manifest of runID and returns its batch keys in order.
// A run without a manifest, or with a different number of batches, is
// rejected before anything is posted.
func (s *Service) stagedRun(ctx context.Context, entity, runID string) (Manifest, []string, error) {
	var manifest Manifest
	raw, err := s.blobs.GetObject(ctx, ManifestKey(entity, runID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return manifest, nil, fmt.Errorf("%w: %s run %s has no manifest", ErrIncompleteRun, entity, runID)
		}
		return manifest, nil, err
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return manifest, nil, fmt.Errorf("%w: %s run %s: decode manifest: %v", ErrIncompleteRun, entity, runID, err)
	}
	keys, err := s.blobs.ListObjects(ctx, RunPrefix(entity, runID))
	if err != nil {
		return manifest, nil, err
	}
	batches := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != ManifestKey(entity, runID) {
			batches = append(batches, key)
		}
	}
	if int64(len(batches)) != manifest.Batches {
		return manifest, nil, fmt.Errorf("%w: %s run %s has %d of %d batches",
			ErrIncompleteRun, entity, runID, len(batches), manifest.Batches)
	}
	return manifest, batches, nil
}

// LatestRun returns the newest sealed run id of entity. Run ids sort by
// creation time, and runs without a manifest are skipped.
func (s *Service) LatestRun(ctx context.Context, entity string) (string, error) {
	keys, err := s.blobs.ListObjects(ctx, entity+"/")
	if err != nil {
		return "", err
	}
	latest := ""
	for _, key := range keys {
		runID, name, ok := strings.Cut(strings.TrimPrefix(key, entity+"/"), "/")
		if ok && name == manifestName && runID > latest {
			latest = runID
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w for %s", ErrNothingStaged, entity)
	}
	return latest, nil
}

// countDocuments returns the length of a staged JSON array.
func countDocuments(body []byte) (int, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(body, &docs); err != nil {
		return 0, fmt.Errorf("decode staged batch: %w", err)
	}
	return len(docs), nil
}

func (s *Service) finish(ctx context.Context, entity string, opts Options) error {
	if err := s.engine.Reload(ctx); err != nil {
		return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageReload, Err: err})
	}
	if err := s.engine.Commit(ctx, opts.Optimize); err != nil {
		return s.fail(ctx, opts, &RunError{Entity: entity, Stage: StageCommit, Err: err})
	}
	return nil
}

// fail rolls back uncommitted posts. Staging-only runs have nothing to roll
// back.
func (s *Service) fail(ctx context.Context, opts Options, err error) error {
	if opts.GenerateOnly {
		return err
	}
	if rbErr := s.engine.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
		s.logger.Error("rollback failed", zap.Error(rbErr))
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

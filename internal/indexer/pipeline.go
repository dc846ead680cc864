// Package indexer turns stored rows into search documents and publishes them
// in batches, either straight to the search engine or to a staging store for
// a later upload.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/atcoder-search/internal/metrics"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

const (
	defaultBatchSize     = 1000
	defaultFlushInterval = time.Second
	defaultConcurrency   = 8
)

// Config tunes a pipeline run.
//   - BatchSize: documents per batch and capacity of the document channel.
//   - FlushInterval: longest wait between two emitted batches.
//   - Concurrency: transforms in flight at once.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Concurrency   int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Batch is one serialized group of documents.
type Batch struct {
	Entity string
	// Seq numbers batches of a run from 1.
	Seq   int
	Count int
	// Body is a JSON array of documents.
	Body []byte
}

// Publisher accepts batches.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, batch Batch) error
}

// Stats summarizes a run.
type Stats struct {
	Rows      int64
	Documents int64
	Batches   int64
}

// Pipeline streams rows of type R through a transform into documents of
// type D.
type Pipeline[R, D any] struct {
	entity    string
	cfg       Config
	transform func(R) (D, error)
	publisher Publisher
	logger    *zap.Logger
	newTimer  func(time.Duration) timer
}

// NewPipeline wires a Pipeline.
func NewPipeline[R, D any](entity string, cfg Config, transform func(R) (D, error), publisher Publisher, logger *zap.Logger) *Pipeline[R, D] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline[R, D]{
		entity:    entity,
		cfg:       cfg.withDefaults(),
		transform: transform,
		publisher: publisher,
		logger:    logger.Named("pipeline").With(zap.String("entity", entity)),
	}
}

// Run drains src. Transforms run concurrently and feed a channel of
// BatchSize documents, so a slow publisher stalls the transforms instead of
// growing memory. The first failure cancels every in-flight task and is
// returned as a *RunError. src is closed on return.
func (p *Pipeline[R, D]) Run(ctx context.Context, src store.RowSource[R]) (Stats, error) {
	defer src.Close()

	var stats Stats
	docs := make(chan D, p.cfg.BatchSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(docs)
		return p.produce(gctx, src, docs, &stats)
	})

	seq := 0
	b := batcher[D]{
		size:     p.cfg.BatchSize,
		wait:     p.cfg.FlushInterval,
		newTimer: p.newTimer,
		emit: func(ctx context.Context, batch []D) error {
			seq++
			return p.publish(ctx, seq, batch, &stats)
		},
	}
	g.Go(func() error {
		return b.run(gctx, docs)
	})

	if err := g.Wait(); err != nil {
		var runErr *RunError
		if !errors.As(err, &runErr) {
			stage := StageRead
			if ctx.Err() != nil {
				stage = StageCanceled
			}
			err = &RunError{Entity: p.entity, Stage: stage, Err: err}
		}
		return stats, err
	}
	p.logger.Info("pipeline finished",
		zap.Int64("rows", stats.Rows),
		zap.Int64("documents", stats.Documents),
		zap.Int64("batches", stats.Batches),
	)
	return stats, nil
}

func (p *Pipeline[R, D]) produce(ctx context.Context, src store.RowSource[R], docs chan<- D, stats *Stats) error {
	tg, tctx := errgroup.WithContext(ctx)
	tg.SetLimit(p.cfg.Concurrency)

	var readErr error
	for src.Next(tctx) {
		row, err := src.Row()
		if err != nil {
			readErr = &RunError{Entity: p.entity, Stage: StageRead, Err: err}
			break
		}
		atomic.AddInt64(&stats.Rows, 1)
		tg.Go(func() error {
			doc, err := p.transform(row)
			if err != nil {
				return &RunError{Entity: p.entity, Stage: StageTransform, Err: err}
			}
			select {
			case docs <- doc:
				return nil
			case <-tctx.Done():
				return tctx.Err()
			}
		})
	}
	if err := tg.Wait(); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}
	if err := src.Err(); err != nil {
		stage := StageRead
		if ctx.Err() != nil {
			stage = StageCanceled
		}
		return &RunError{Entity: p.entity, Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline[R, D]) publish(ctx context.Context, seq int, batch []D, stats *Stats) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return &RunError{Entity: p.entity, Stage: StageTransform, Err: fmt.Errorf("encode batch %d: %w", seq, err)}
	}
	if err := p.publisher.Publish(ctx, Batch{Entity: p.entity, Seq: seq, Count: len(batch), Body: body}); err != nil {
		return &RunError{Entity: p.entity, Stage: StagePublish, Err: fmt.Errorf("batch %d: %w", seq, err)}
	}
	atomic.AddInt64(&stats.Documents, int64(len(batch)))
	atomic.AddInt64(&stats.Batches, 1)
	metrics.ObserveBatch(p.entity, p.publisher.Name(), len(batch))
	p.logger.Debug("batch published", zap.Int("batch", seq), zap.Int("documents", len(batch)))
	return nil
}

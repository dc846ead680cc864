package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/atcoder-search/internal/storage"
)

// SearchEngine is the write side of the search index.
type SearchEngine interface {
	Reload(ctx context.Context) error
	Post(ctx context.Context, body []byte) error
	Commit(ctx context.Context, optimize bool) error
	Rollback(ctx context.Context) error
	Truncate(ctx context.Context) error
}

// Hasher returns the content digest used in a staged batch name.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// DirectPublisher posts every batch to the search engine.
type DirectPublisher struct {
	engine SearchEngine
}

// NewDirectPublisher wraps engine.
func NewDirectPublisher(engine SearchEngine) *DirectPublisher {
	return &DirectPublisher{engine: engine}
}

// Name implements Publisher.
func (*DirectPublisher) Name() string { return "direct" }

// Publish posts the batch body.
func (p *DirectPublisher) Publish(ctx context.Context, batch Batch) error {
	return p.engine.Post(ctx, batch.Body)
}

// StagingPublisher writes every batch to a blob store under
// <entity>/<run id>/<seq>-<digest>.json.
type StagingPublisher struct {
	blobs  storage.BlobStore
	hasher Hasher
	runID  string
}

// NewStagingPublisher stages batches of run runID.
func NewStagingPublisher(blobs storage.BlobStore, hasher Hasher, runID string) *StagingPublisher {
	return &StagingPublisher{blobs: blobs, hasher: hasher, runID: runID}
}

// Name implements Publisher.
func (*StagingPublisher) Name() string { return "staging" }

// Publish stores the batch body.
func (p *StagingPublisher) Publish(ctx context.Context, batch Batch) error {
	digest, err := p.hasher.Hash(batch.Body)
	if err != nil {
		return fmt.Errorf("hash batch: %w", err)
	}
	key := fmt.Sprintf("%s%06d-%s.json", RunPrefix(batch.Entity, p.runID), batch.Seq, digest)
	if _, err := p.blobs.PutObject(ctx, key, "application/json", bytes.NewReader(batch.Body)); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	return nil
}

// Seal writes the manifest of a fully staged run. Upload only accepts sealed
// runs, so batches left behind by a failed run are never posted.
func (p *StagingPublisher) Seal(ctx context.Context, entity string, stats Stats) error {
	body, err := json.Marshal(Manifest{Batches: stats.Batches, Documents: stats.Documents})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	key := ManifestKey(entity, p.runID)
	if _, err := p.blobs.PutObject(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	return nil
}

// Manifest is the last object of a staged run.
type Manifest struct {
	Batches   int64 `json:"batches"`
	Documents int64 `json:"documents"`
}

// manifestName sorts after every batch name.
const manifestName = "_MANIFEST.json"

// RunPrefix is the staging prefix of one run's batches.
func RunPrefix(entity, runID string) string {
	return entity + "/" + runID + "/"
}

// ManifestKey is the key of a run's manifest.
func ManifestKey(entity, runID string) string {
	return RunPrefix(entity, runID) + manifestName
}

// Package storage defines the blob store the indexer stages serialized
// document batches in. Implementations live in the local, memory and gcs
// subpackages.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject for a missing path.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore writes, reads and lists staged artifacts.
type BlobStore interface {
	// PutObject stores data at path and returns a URI for logging.
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	// GetObject reads the object at path.
	GetObject(ctx context.Context, path string) ([]byte, error)
	// ListObjects returns every path under prefix in lexical order.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

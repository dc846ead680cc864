// Package sha256 derives the content suffix of staged batch names, as in
// problem/<run>/000001-<digest>.json. Two runs that stage the same documents
// get the same suffix, which makes duplicate staging easy to spot.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// BatchWidth is the digest length used in staged batch names.
const BatchWidth = 12

// Digester implements indexer.Hasher with a truncated SHA-256 hex digest.
type Digester struct {
	width int
}

// New returns a Digester producing BatchWidth characters.
func New() *Digester {
	return &Digester{width: BatchWidth}
}

// NewWidth returns a Digester producing width characters, between 1 and 64.
func NewWidth(width int) (*Digester, error) {
	if width < 1 || width > hex.EncodedLen(sha256.Size) {
		return nil, fmt.Errorf("digest width %d out of range", width)
	}
	return &Digester{width: width}, nil
}

// Hash returns the leading hex characters of the batch body's digest.
func (d *Digester) Hash(body []byte) (string, error) {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])[:d.width], nil
}

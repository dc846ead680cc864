package crawler

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled marks a crawl stopped at a page or item boundary because its
// context was canceled. Nothing fetched after the last commit is persisted.
var ErrCanceled = errors.New("crawl canceled")

func canceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}

// boundary is a cancellation safe point.
func boundary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return canceled(err)
	}
	return nil
}

// PageError is a page whose fetch failed for good.
type PageError struct {
	ContestID string
	Page      int
	Err       error
}

func (e *PageError) Error() string {
	if e.ContestID == "" {
		return fmt.Sprintf("page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("contest %s page %d: %v", e.ContestID, e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

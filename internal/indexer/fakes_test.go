package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type sliceSource[T any] struct {
	rows   []T
	i      int
	err    error
	closed bool
}

func newSliceSource[T any](rows []T) *sliceSource[T] {
	return &sliceSource[T]{rows: rows}
}

func (s *sliceSource[T]) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if s.i >= len(s.rows) {
		return false
	}
	s.i++
	return true
}

func (s *sliceSource[T]) Row() (T, error) { return s.rows[s.i-1], nil }
func (s *sliceSource[T]) Err() error      { return s.err }
func (s *sliceSource[T]) Close()          { s.closed = true }

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type doc struct {
	ID int `json:"id"`
}

func toDoc(i int) (doc, error) { return doc{ID: i}, nil }

type recordingPublisher struct {
	mu      sync.Mutex
	batches []Batch
	release chan struct{}
	err     error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(ctx context.Context, b Batch) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, b)
	return nil
}

func (p *recordingPublisher) ids() ([]int, []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all, sizes []int
	for _, b := range p.batches {
		var docs []doc
		if err := json.Unmarshal(b.Body, &docs); err != nil {
			panic(err)
		}
		sizes = append(sizes, len(docs))
		for _, d := range docs {
			all = append(all, d.ID)
		}
	}
	return all, sizes
}

type fakeTimer struct {
	c      chan time.Time
	mu     sync.Mutex
	resets int
}

func newFakeTimer() *fakeTimer { return &fakeTimer{c: make(chan time.Time)} }

func (f *fakeTimer) C() <-chan time.Time { return f.c }
func (f *fakeTimer) Reset(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}
func (f *fakeTimer) Stop() {}

// fakeEngine records search engine calls in order.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	bodies  [][]byte
	postErr error
}

func (e *fakeEngine) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *fakeEngine) Reload(context.Context) error { e.record("reload"); return nil }

func (e *fakeEngine) Post(_ context.Context, body []byte) error {
	e.record("post")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.postErr != nil {
		return e.postErr
	}
	e.bodies = append(e.bodies, body)
	return nil
}

func (e *fakeEngine) Commit(_ context.Context, optimize bool) error {
	e.record(fmt.Sprintf("commit(optimize=%t)", optimize))
	return nil
}

func (e *fakeEngine) Rollback(context.Context) error { e.record("rollback"); return nil }
func (e *fakeEngine) Truncate(context.Context) error { e.record("truncate"); return nil }

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcherSizeAndTimeTriggers(t *testing.T) {
	t.Parallel()

	ft := newFakeTimer()
	var emitted [][]int
	b := batcher[int]{
		size:     3,
		wait:     time.Second,
		newTimer: func(time.Duration) timer { return ft },
		emit: func(_ context.Context, batch []int) error {
			emitted = append(emitted, batch)
			return nil
		},
	}
	in := make(chan int)
	done := make(chan error, 1)
	go func() { done <- b.run(context.Background(), in) }()

	in <- 1
	in <- 2
	in <- 3 // size trigger
	in <- 4
	ft.c <- time.Now() // time trigger with a partial batch
	ft.c <- time.Now() // nothing pending, nothing emitted
	in <- 5
	close(in)

	require.NoError(t, <-done)
	assert.Equal(t, [][]int{{1, 2, 3}, {4}, {5}}, emitted)
	assert.Equal(t, 3, ft.resets)
}

func TestBatcherStopsOnEmitError(t *testing.T) {
	t.Parallel()

	b := batcher[int]{
		size: 1,
		wait: time.Hour,
		emit: func(context.Context, []int) error { return assert.AnError },
	}
	in := make(chan int, 1)
	in <- 1
	assert.ErrorIs(t, b.run(context.Background(), in), assert.AnError)
}

func TestBatcherStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := batcher[int]{size: 10, wait: time.Hour, emit: func(context.Context, []int) error { return nil }}
	assert.ErrorIs(t, b.run(ctx, make(chan int)), context.Canceled)
}

func TestBatcherRealTimerFlushesPartialBatch(t *testing.T) {
	t.Parallel()

	emitted := make(chan []int, 1)
	b := batcher[int]{
		size: 100,
		wait: 10 * time.Millisecond,
		emit: func(_ context.Context, batch []int) error {
			emitted <- batch
			return nil
		},
	}
	in := make(chan int)
	go func() { _ = b.run(context.Background(), in) }()
	in <- 7

	select {
	case batch := <-emitted:
		assert.Equal(t, []int{7}, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("partial batch was not flushed by the timer")
	}
	close(in)
}

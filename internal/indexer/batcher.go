package indexer

import (
	"context"
	"time"
)

// timer is the subset of *time.Timer the batcher uses.
type timer interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type realTimer struct{ t *time.Timer }

func newRealTimer(d time.Duration) timer { return realTimer{t: time.NewTimer(d)} }

func (r realTimer) C() <-chan time.Time  { return r.t.C }
func (r realTimer) Reset(d time.Duration) { r.t.Reset(d) }
func (r realTimer) Stop()                 { r.t.Stop() }

// batcher drains in and emits a batch when it reaches size or when wait has
// elapsed since the previous emission, whichever comes first. The final
// partial batch is emitted when in is closed.
type batcher[D any] struct {
	size     int
	wait     time.Duration
	newTimer func(time.Duration) timer
	emit     func(ctx context.Context, batch []D) error
}

func (b batcher[D]) run(ctx context.Context, in <-chan D) error {
	newTimer := b.newTimer
	if newTimer == nil {
		newTimer = newRealTimer
	}
	t := newTimer(b.wait)
	defer t.Stop()

	batch := make([]D, 0, b.size)
	flush := func() error {
		defer t.Reset(b.wait)
		if len(batch) == 0 {
			return nil
		}
		out := batch
		batch = make([]D, 0, b.size)
		return b.emit(ctx, out)
	}

	for {
		select {
		case doc, ok := <-in:
			if !ok {
				if len(batch) == 0 {
					return nil
				}
				return b.emit(ctx, batch)
			}
			batch = append(batch, doc)
			if len(batch) >= b.size {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-t.C():
			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Package memory keeps published run events in memory for tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/atcoder-search/internal/notify"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []notify.Event
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event.
func (p *Publisher) Publish(_ context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []notify.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]notify.Event, len(p.events))
	copy(out, p.events)
	return out
}

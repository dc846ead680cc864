// Package notify announces finished crawl and index runs.
package notify

import (
	"context"
	"time"
)

// Event describes one finished run.
type Event struct {
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	RunID      string     `json:"run_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Publisher delivers run events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

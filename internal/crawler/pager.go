package crawler

import (
	"errors"
	"fmt"
)

// Phase is the state of a paginated fetch.
type Phase int

// Pager phases.
const (
	PhaseQueued Phase = iota
	PhaseFetching
	PhaseRetrying
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseFetching:
		return "fetching"
	case PhaseRetrying:
		return "retrying"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome is the result of fetching one page.
type Outcome int

// Page outcomes.
const (
	// OutcomeItems is a non-empty page; pagination continues.
	OutcomeItems Outcome = iota
	// OutcomeCaughtUp is a non-empty page whose newest item is at or below
	// the watermark; pagination stops after keeping the page.
	OutcomeCaughtUp
	// OutcomeEmpty is a page past the end.
	OutcomeEmpty
	// OutcomeTransient is a failure worth retrying.
	OutcomeTransient
	// OutcomeFatal is a failure that is never retried.
	OutcomeFatal
)

// ErrInvalidTransition is returned for an outcome the current phase cannot
// accept.
var ErrInvalidTransition = errors.New("invalid pager transition")

// PageState is the pager's position. Retries counts the attempts left for
// Page after the current one.
type PageState struct {
	Phase   Phase
	Page    int
	Retries int
}

// Begin moves a queued or retrying page to fetching.
func Begin(s PageState) (PageState, error) {
	switch s.Phase {
	case PhaseQueued, PhaseRetrying:
		s.Phase = PhaseFetching
		return s, nil
	default:
		return s, fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.Phase)
	}
}

// Next applies the outcome of a fetching page. budget is the retry budget a
// page gets when it is first queued.
//
//	Fetching + Items      -> Queued(page+1, budget)
//	Fetching + CaughtUp   -> Done
//	Fetching + Empty      -> Done
//	Fetching + Transient  -> Retrying(page, n-1) if n > 0, else Failed
//	Fetching + Fatal      -> Failed
func Next(s PageState, o Outcome, budget int) (PageState, error) {
	if s.Phase != PhaseFetching {
		return s, fmt.Errorf("%w: outcome in %s", ErrInvalidTransition, s.Phase)
	}
	switch o {
	case OutcomeItems:
		return PageState{Phase: PhaseQueued, Page: s.Page + 1, Retries: budget}, nil
	case OutcomeCaughtUp, OutcomeEmpty:
		s.Phase = PhaseDone
		return s, nil
	case OutcomeTransient:
		if s.Retries > 0 {
			return PageState{Phase: PhaseRetrying, Page: s.Page, Retries: s.Retries - 1}, nil
		}
		s.Phase = PhaseFailed
		return s, nil
	case OutcomeFatal:
		s.Phase = PhaseFailed
		return s, nil
	default:
		return s, fmt.Errorf("%w: unknown outcome %d", ErrInvalidTransition, int(o))
	}
}

// Pager drives PageState from page 1.
type Pager struct {
	state  PageState
	budget int
}

// NewPager starts at page 1 with budget retries per page.
func NewPager(budget int) *Pager {
	if budget < 0 {
		budget = 0
	}
	return &Pager{
		state:  PageState{Phase: PhaseQueued, Page: 1, Retries: budget},
		budget: budget,
	}
}

// State returns the current state.
func (p *Pager) State() PageState {
	return p.state
}

// Begin returns the page to fetch, or false once the pager is done or failed.
func (p *Pager) Begin() (int, bool) {
	next, err := Begin(p.state)
	if err != nil {
		return 0, false
	}
	p.state = next
	return next.Page, true
}

// Record applies the outcome of the page returned by Begin.
func (p *Pager) Record(o Outcome) (PageState, error) {
	next, err := Next(p.state, o, p.budget)
	if err != nil {
		return p.state, err
	}
	p.state = next
	return next, nil
}

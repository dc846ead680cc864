package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransitions(t *testing.T) {
	t.Parallel()

	fetching := PageState{Phase: PhaseFetching, Page: 3, Retries: 1}
	tests := []struct {
		name    string
		state   PageState
		outcome Outcome
		want    PageState
	}{
		{"items advance and reset retries", PageState{Phase: PhaseFetching, Page: 3, Retries: 0}, OutcomeItems, PageState{Phase: PhaseQueued, Page: 4, Retries: 2}},
		{"caught up finishes", fetching, OutcomeCaughtUp, PageState{Phase: PhaseDone, Page: 3, Retries: 1}},
		{"empty finishes", fetching, OutcomeEmpty, PageState{Phase: PhaseDone, Page: 3, Retries: 1}},
		{"transient with budget retries same page", fetching, OutcomeTransient, PageState{Phase: PhaseRetrying, Page: 3, Retries: 0}},
		{"transient without budget fails", PageState{Phase: PhaseFetching, Page: 3}, OutcomeTransient, PageState{Phase: PhaseFailed, Page: 3}},
		{"fatal fails", fetching, OutcomeFatal, PageState{Phase: PhaseFailed, Page: 3, Retries: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Next(tc.state, tc.outcome, 2)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	t.Parallel()

	for _, phase := range []Phase{PhaseQueued, PhaseRetrying, PhaseDone, PhaseFailed} {
		_, err := Next(PageState{Phase: phase}, OutcomeItems, 1)
		assert.ErrorIs(t, err, ErrInvalidTransition, phase.String())
	}
	for _, phase := range []Phase{PhaseFetching, PhaseDone, PhaseFailed} {
		_, err := Begin(PageState{Phase: phase})
		assert.ErrorIs(t, err, ErrInvalidTransition, phase.String())
	}
	_, err := Next(PageState{Phase: PhaseFetching}, Outcome(99), 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPagerRetryBudget(t *testing.T) {
	t.Parallel()

	const budget = 3
	p := NewPager(budget)
	attempts := 0
	for {
		page, ok := p.Begin()
		if !ok {
			break
		}
		assert.Equal(t, 1, page)
		attempts++
		_, err := p.Record(OutcomeTransient)
		require.NoError(t, err)
	}
	assert.Equal(t, budget+1, attempts)
	assert.Equal(t, PhaseFailed, p.State().Phase)
}

func TestPagerVisitsPagesInOrder(t *testing.T) {
	t.Parallel()

	p := NewPager(1)
	outcomes := []Outcome{OutcomeItems, OutcomeTransient, OutcomeItems, OutcomeEmpty}
	var pages []int
	for _, o := range outcomes {
		page, ok := p.Begin()
		require.True(t, ok)
		pages = append(pages, page)
		_, err := p.Record(o)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 2, 3}, pages)
	assert.Equal(t, PhaseDone, p.State().Phase)

	_, ok := p.Begin()
	assert.False(t, ok)
	_, err := p.Record(OutcomeItems)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNewPagerClampsBudget(t *testing.T) {
	t.Parallel()

	p := NewPager(-2)
	assert.Equal(t, PageState{Phase: PhaseQueued, Page: 1}, p.State())
}

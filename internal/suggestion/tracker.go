package suggestion

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// State is what a user sees of their most recent suggestion request.
type State struct {
	TicketID    string
	Loading     bool
	Suggestion  *domain.Suggestion
	RequestedAt time.Time
}

// Pending identifies one request. Done closes once the provider returned,
// whether or not its result was kept.
type Pending struct {
	Seq  uint64
	Done <-chan struct{}
}

// Tracker runs suggestion fetches per user. A new request cancels the user's
// previous one, and only the latest request's result is ever recorded.
type Tracker struct {
	provider Provider
	base     context.Context
	now      func() time.Time

	mu      sync.Mutex
	seq     uint64
	entries map[string]*trackerEntry
}

type trackerEntry struct {
	seq    uint64
	cancel context.CancelFunc
	state  State
}

// NewTracker binds fetches to base; cancelling base aborts all of them.
func NewTracker(base context.Context, provider Provider) *Tracker {
	return &Tracker{
		provider: provider,
		base:     base,
		now:      time.Now,
		entries:  make(map[string]*trackerEntry),
	}
}

// Request starts a fetch for ticket on behalf of userID.
func (t *Tracker) Request(userID string, ticket domain.Ticket) Pending {
	ctx, cancel := context.WithCancel(t.base)
	done := make(chan struct{})

	t.mu.Lock()
	t.seq++
	seq := t.seq
	if prev, ok := t.entries[userID]; ok && prev.cancel != nil {
		prev.cancel()
	}
	t.entries[userID] = &trackerEntry{
		seq:    seq,
		cancel: cancel,
		state:  State{TicketID: ticket.ID, Loading: true, RequestedAt: t.now()},
	}
	t.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		result := t.provider.Suggest(ctx, ticket)

		t.mu.Lock()
		defer t.mu.Unlock()
		entry, ok := t.entries[userID]
		if !ok || entry.seq != seq {
			return
		}
		entry.state.Loading = false
		entry.state.Suggestion = result
		entry.cancel = nil
	}()

	return Pending{Seq: seq, Done: done}
}

// State returns userID's latest request, if any.
func (t *Tracker) State(userID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[userID]
	if !ok {
		return State{}, false
	}
	return entry.state, true
}

// Forget cancels and drops userID's request, typically on logout.
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[userID]; ok {
		if entry.cancel != nil {
			entry.cancel()
		}
		delete(t.entries, userID)
	}
}

// Package ticketid hands out ticket identifiers of the form TKT-001. The
// counter lives behind CounterStore so ids stay unique regardless of how many
// tickets a collection currently holds.
package ticketid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPrefix = "TKT-"
	DefaultWidth  = 3
)

// CounterStore is a monotonic counter.
type CounterStore interface {
	// Add advances the counter by offset (>=1) and returns the new value.
	Add(ctx context.Context, offset int64) (int64, error)
	// Prime raises the counter to at least floor. It never lowers it.
	Prime(ctx context.Context, floor int64) error
}

// Sequence formats counter values into ticket ids.
type Sequence struct {
	store  CounterStore
	prefix string
	width  int
}

// NewSequence returns a TKT-NNN sequence backed by store.
func NewSequence(store CounterStore) *Sequence {
	return &Sequence{store: store, prefix: DefaultPrefix, width: DefaultWidth}
}

// Next reserves the next id.
func (s *Sequence) Next(ctx context.Context) (string, error) {
	n, err := s.store.Add(ctx, 1)
	if err != nil {
		return "", fmt.Errorf("advance ticket counter: %w", err)
	}
	return s.Format(n), nil
}

// Prime makes sure ids already in use are never handed out again.
func (s *Sequence) Prime(ctx context.Context, ids []string) error {
	var highest int64
	for _, id := range ids {
		if n, ok := s.Parse(id); ok && n > highest {
			highest = n
		}
	}
	if highest == 0 {
		return nil
	}
	return s.store.Prime(ctx, highest)
}

// Format renders n with the sequence prefix, zero padded to the minimum width.
func (s *Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.prefix, s.width, n)
}

// Parse extracts the counter value from id.
func (s *Sequence) Parse(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, s.prefix)
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process, newest first. Reads and
// writes hand out clones so callers never share state with the store.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
}

func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{}
}

func (r *MemoryTicketRepository) List(_ context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Ticket, len(r.tickets))
	for i, ticket := range r.tickets {
		out[i] = ticket.Clone()
	}
	return out, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.tickets[i].Clone(), nil
	}
	return domain.Ticket{}, ErrNotFound
}

func (r *MemoryTicketRepository) Insert(_ context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append([]domain.Ticket{ticket.Clone()}, r.tickets...)
	return nil
}

func (r *MemoryTicketRepository) Replace(_ context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(ticket.ID)
	if i < 0 {
		return ErrNotFound
	}
	r.tickets[i] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets), nil
}

func (r *MemoryTicketRepository) indexOf(id string) int {
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

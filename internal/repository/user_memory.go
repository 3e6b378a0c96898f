package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MemoryUserRepository is an in-process directory in insertion order.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []domain.User
}

func NewMemoryUserRepository(users ...domain.User) *MemoryUserRepository {
	repo := &MemoryUserRepository{}
	for _, user := range users {
		_ = repo.Upsert(context.Background(), user)
	}
	return repo
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepository) FirstByRole(_ context.Context, role domain.Role) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Role == role {
			return user, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Upsert(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = user
			return nil
		}
	}
	r.users = append(r.users, user)
	return nil
}

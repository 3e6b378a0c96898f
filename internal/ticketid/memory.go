package ticketid

import (
	"context"
	"sync"
)

// MemoryCounter keeps the counter in process. It resets on restart.
type MemoryCounter struct {
	mu    sync.Mutex
	value int64
}

func NewMemoryCounter(start int64) *MemoryCounter {
	return &MemoryCounter{value: start}
}

func (c *MemoryCounter) Add(_ context.Context, offset int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += offset
	return c.value, nil
}

func (c *MemoryCounter) Prime(_ context.Context, floor int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if floor > c.value {
		c.value = floor
	}
	return nil
}

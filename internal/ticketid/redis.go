package ticketid

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCmdable is the slice of the go-redis client the counter needs.
type RedisCmdable interface {
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
}

// RedisCounter stores the counter under a single key using INCRBY, so several
// service instances share one sequence.
type RedisCounter struct {
	client RedisCmdable
	key    string
}

func NewRedisCounter(client RedisCmdable, key string) *RedisCounter {
	return &RedisCounter{client: client, key: key}
}

func (c *RedisCounter) Add(ctx context.Context, offset int64) (int64, error) {
	n, err := c.client.IncrBy(ctx, c.key, offset).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incrby %s: %w", c.key, err)
	}
	return n, nil
}

// Prime tops the key up to floor. A concurrent Add between the read and the
// top-up only pushes the value higher, which is harmless.
func (c *RedisCounter) Prime(ctx context.Context, floor int64) error {
	current, err := c.client.IncrBy(ctx, c.key, 0).Result()
	if err != nil {
		return fmt.Errorf("redis read %s: %w", c.key, err)
	}
	if current >= floor {
		return nil
	}
	if err := c.client.IncrBy(ctx, c.key, floor-current).Err(); err != nil {
		return fmt.Errorf("redis prime %s: %w", c.key, err)
	}
	return nil
}

package seq

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the counters with redis INCR so multiple publisher nodes
// never hand out the same sequence.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "attend:seq:",
	}
}

func (s *RedisStore) Next(ctx context.Context, sessionID string) (int64, error) {
	seq, err := s.client.Incr(ctx, s.prefix+sessionID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return seq, nil
}

func (s *RedisStore) Ensure(ctx context.Context, sessionID string, floor int64) error {
	// Watch/retry loop so a concurrent Next can never be clobbered downward.
	key := s.prefix + sessionID
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur >= floor {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, floor, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to ensure sequence floor: %w", err)
	}
	return nil
}

func (s *RedisStore) Forget(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}
	return nil
}

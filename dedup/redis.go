package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps admitted ids in a redis set so several indexer instances can
// share one view. SADD reports whether the member was new, which makes
// admission atomic across instances.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: SetName}
}

var _ Tracker = (*Redis)(nil)

func (r *Redis) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis SISMEMBER %s: %w", id, err)
	}
	return ok, nil
}

func (r *Redis) MarkSeen(ctx context.Context, id string) error {
	if err := r.client.SAdd(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("redis SADD %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Admit(ctx context.Context, id string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis SADD %s: %w", id, err)
	}
	return added == 1, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

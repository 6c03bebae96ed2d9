package cartstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores cart values in Redis under cart:<scope>:<key>.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func redisKey(scope, key string) string {
	return fmt.Sprintf("cart:%s:%s", scope, key)
}

func (r *Redis) Get(ctx context.Context, scope, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, redisKey(scope, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cart get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, scope, key, value string) error {
	if err := r.rdb.Set(ctx, redisKey(scope, key), value, 0).Err(); err != nil {
		return fmt.Errorf("cart set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, scope, key string) error {
	if err := r.rdb.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("cart delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

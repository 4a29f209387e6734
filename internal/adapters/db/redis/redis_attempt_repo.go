package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "signin:fail:"

// RedisAttemptRepo counts failed sign-ins per identifier in fixed windows.
// The first failure of a window sets the key TTL; the window ends with it.
type RedisAttemptRepo struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewRedisAttemptRepo(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisAttemptRepo {
	return &RedisAttemptRepo{
		client:      client,
		maxAttempts: maxAttempts,
		window:      safeTTL(window),
	}
}

func (r *RedisAttemptRepo) Allow(ctx context.Context, identifier string) (bool, error) {
	if r.maxAttempts <= 0 {
		return true, nil
	}
	n, err := r.client.Get(ctx, keyPrefix+identifier).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return true, nil // no failures in the current window
	case err != nil:
		return true, err
	default:
		return n < int64(r.maxAttempts), nil
	}
}

func (r *RedisAttemptRepo) RecordFailure(ctx context.Context, identifier string) error {
	key := keyPrefix + identifier
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return r.client.Expire(ctx, key, r.window).Err()
	}
	return nil
}

func (r *RedisAttemptRepo) Reset(ctx context.Context, identifier string) error {
	return r.client.Del(ctx, keyPrefix+identifier).Err()
}

func (r *RedisAttemptRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func safeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 15 * time.Minute
	}
	return ttl
}

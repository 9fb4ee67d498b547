package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the shared-state variant of the login limiter: INCR plus
// EXPIRE on first hit of the window, so all instances count together. It
// fails open; a broken redis must not lock everyone out of login.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (time.Duration, bool) {
	count, err := rl.rdb.Incr(ctx, key).Result()

	if err != nil {
		return 0, true
	}

	if count == 1 {
		_ = rl.rdb.Expire(ctx, key, rl.window).Err()
	}

	if count > int64(rl.limit) {
		ttl, err := rl.rdb.TTL(ctx, key).Result()

		if err != nil || ttl < 0 {
			ttl = rl.window
		}
		return ttl, false
	}

	return 0, true
}

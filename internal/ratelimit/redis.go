package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	appErr "github.com/logicflow/engine/pkg/errors"
)

// RedisLimiter shares counters between replicas through Redis.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows limit hits per key in every window. prefix namespaces the keys.
func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, every time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: every, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := "ratelimit:" + l.prefix + ":" + key

	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, appErr.Wrap(err, appErr.CodeUnavailable, "rate limit store unavailable")
	}
	if n == 1 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, appErr.Wrap(err, appErr.CodeUnavailable, "rate limit store unavailable")
		}
	}

	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, appErr.Wrap(err, appErr.CodeUnavailable, "rate limit store unavailable")
	}
	if ttl < 0 {
		// A crash between INCR and PEXPIRE leaves the key without expiry.
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, appErr.Wrap(err, appErr.CodeUnavailable, "rate limit store unavailable")
		}
		ttl = l.window
	}

	res := Result{Limit: l.limit, ResetAt: l.now().Add(ttl)}
	if int(n) > l.limit {
		return res, nil
	}
	res.Allowed = true
	res.Remaining = l.limit - int(n)
	return res, nil
}

package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window budget: at most Limit hits per Period.
type Window struct {
	Limit  int
	Period time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

// Limiter implements fixed-window counters in Redis.
type Limiter struct {
	redis redis.UniversalClient
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{redis: redisClient}
}

// Allow records one hit against key and reports whether it fit in w.
func (l *Limiter) Allow(ctx context.Context, key string, w Window) (Decision, error) {
	if w.Limit <= 0 || w.Period <= 0 {
		return Decision{Allowed: true}, nil
	}

	count, err := l.Hit(ctx, key, w.Period)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Allowed: count <= int64(w.Limit),
		Count:   count,
		Limit:   w.Limit,
	}
	if !d.Allowed {
		d.RetryAfter = l.retryAfter(ctx, key, w.Period)
	}
	return d, nil
}

// Count returns the current hit count for key without recording a hit.
func (l *Limiter) Count(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Hit increments key and starts its window on the first hit. INCR and
// PEXPIRE NX go out in one MULTI/EXEC, so a counter never exists without a
// TTL and later hits never extend the window.
func (l *Limiter) Hit(ctx context.Context, key string, period time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Do(ctx, "pexpire", key, max(period.Milliseconds(), 1), "NX")
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

// Reset clears key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) retryAfter(ctx context.Context, key string, fallback time.Duration) time.Duration {
	ttl, err := l.redis.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return fallback
	}
	return ttl
}

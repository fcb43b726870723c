package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/twocards/backoffice/internal/apperr"
)

// Limiter throttles failed logins per username.
type Limiter interface {
	Check(ctx context.Context, username string) error
	Fail(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// NoopLimiter never throttles. Used when Redis is not configured.
type NoopLimiter struct{}

func (NoopLimiter) Check(context.Context, string) error { return nil }
func (NoopLimiter) Fail(context.Context, string) error  { return nil }
func (NoopLimiter) Reset(context.Context, string) error { return nil }

// RedisLimiter keeps fixed-window failure counters in Redis.
type RedisLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	cooldown    time.Duration
}

// NewRedisLimiter creates a limiter allowing maxAttempts failures per cooldown window.
func NewRedisLimiter(client redis.UniversalClient, maxAttempts int, cooldown time.Duration) *RedisLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RedisLimiter{redis: client, maxAttempts: maxAttempts, cooldown: cooldown}
}

func loginKey(username string) string {
	return "backoffice:login:" + strings.ToLower(username)
}

// Check fails with apperr.ErrRateLimited once the budget is spent.
func (l *RedisLimiter) Check(ctx context.Context, username string) error {
	count, err := l.redis.Get(ctx, loginKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("login limiter unavailable: %w", err)
	}
	if count >= int64(l.maxAttempts) {
		return apperr.ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt.
func (l *RedisLimiter) Fail(ctx context.Context, username string) error {
	key := loginKey(username)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("login limiter unavailable: %w", err)
	}
	// The window starts with the first failure.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cooldown).Err(); err != nil {
			return fmt.Errorf("login limiter unavailable: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *RedisLimiter) Reset(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, loginKey(username)).Err(); err != nil {
		return fmt.Errorf("login limiter unavailable: %w", err)
	}
	return nil
}

package caching

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per email in fixed windows.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

type redisLoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
}

// NewRedisLoginLimiter fails open: when redis is unreachable every attempt is allowed.
func NewRedisLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration, logger *slog.Logger) LoginLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisLoginLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger.With("component", "login_limiter"),
	}
}

func loginKey(email string) string {
	return keyPrefix + "login:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *redisLoginLimiter) Allow(ctx context.Context, email string) bool {
	count, err := l.client.Get(ctx, loginKey(email)).Int()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("login limiter read failed", "error", err)
		}
		return true
	}
	return count < l.maxAttempts
}

func (l *redisLoginLimiter) RecordFailure(ctx context.Context, email string) {
	key := loginKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter increment failed", "error", err)
		return
	}
	// Window starts at the first failure.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", "error", err)
		}
	}
}

func (l *redisLoginLimiter) Reset(ctx context.Context, email string) {
	if err := l.client.Del(ctx, loginKey(email)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", "error", err)
	}
}

type noopLoginLimiter struct{}

func NewNoopLoginLimiter() LoginLimiter { return noopLoginLimiter{} }

func (noopLoginLimiter) Allow(context.Context, string) bool { return true }
func (noopLoginLimiter) RecordFailure(context.Context, string) {}
func (noopLoginLimiter) Reset(context.Context, string) {}

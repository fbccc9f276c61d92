package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	EnableSignInThrottle  bool
	EnableRefreshThrottle bool
	MaxSignInAttempts     int
	SignInCooldown        time.Duration
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// Limiter enforces per-identifier sign-in and per-user refresh limits
// using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckSignIn checks whether the identifier is within the sign-in
// attempt budget. Returns ErrRateLimited when exhausted.
func (l *Limiter) CheckSignIn(ctx context.Context, identifier string) error {
	if !l.config.EnableSignInThrottle {
		return nil
	}
	return l.checkCounter(ctx, signInKey(identifier), l.config.MaxSignInAttempts)
}

// RecordSignInFailure records a failed sign-in attempt for the
// identifier and reports whether the budget is now exhausted.
func (l *Limiter) RecordSignInFailure(ctx context.Context, identifier string) error {
	if !l.config.EnableSignInThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, signInKey(identifier), l.config.SignInCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignInAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetSignIn clears the failed sign-in counter for the identifier.
// Called after a successful sign-in.
func (l *Limiter) ResetSignIn(ctx context.Context, identifier string) error {
	if !l.config.EnableSignInThrottle {
		return nil
	}
	if err := l.redis.Del(ctx, signInKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts a refresh attempt for the user and enforces the
// refresh budget in one step.
func (l *Limiter) CheckRefresh(ctx context.Context, userID string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, refreshKey(userID), l.config.RefreshCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

// SignInAttempts returns the current attempt counter for an
// identifier. Missing keys return zero and do not reveal account
// existence.
func (l *Limiter) SignInAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, signInKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func signInKey(identifier string) string {
	return "as:si:" + identifier
}

func refreshKey(userID string) string {
	return "as:rf:" + userID
}

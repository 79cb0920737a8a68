package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout tracks failed login attempts in redis and locks accounts that
// exceed the configured threshold.
type Lockout struct {
	redis       *redis.Client
	maxAttempts int
	duration    time.Duration
}

// NewLockout creates a lockout tracker.
func NewLockout(client *redis.Client, maxAttempts int, duration time.Duration) *Lockout {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	return &Lockout{redis: client, maxAttempts: maxAttempts, duration: duration}
}

// RecordFailure increments the failure counter and locks the account when the
// threshold is reached.
func (l *Lockout) RecordFailure(ctx context.Context, email string) error {
	key := fmt.Sprintf("failed_attempts:%s", email)

	attempts, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if attempts == 1 {
		l.redis.Expire(ctx, key, 24*time.Hour)
	}

	if int(attempts) >= l.maxAttempts {
		lockKey := fmt.Sprintf("account_locked:%s", email)
		if err := l.redis.Set(ctx, lockKey, "locked", l.duration).Err(); err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
	}
	return nil
}

// Clear resets the failure counter after a successful login.
func (l *Lockout) Clear(ctx context.Context, email string) error {
	return l.redis.Del(ctx, fmt.Sprintf("failed_attempts:%s", email)).Err()
}

// IsLocked reports whether the account is currently locked out.
func (l *Lockout) IsLocked(ctx context.Context, email string) (bool, error) {
	ttl, err := l.redis.TTL(ctx, fmt.Sprintf("account_locked:%s", email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock status: %w", err)
	}
	return ttl > 0, nil
}

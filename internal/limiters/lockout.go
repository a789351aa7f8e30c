package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the account lockout tracker.
type LockoutConfig struct {
	Enabled     bool
	MaxFailures int
	Window      time.Duration
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// Lockout tracks consecutive failed sign-in attempts per account and locks
// the account for a fixed window once the failure threshold is reached.
type Lockout struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockout creates a new lockout tracker.
func NewLockout(redisClient redis.UniversalClient, cfg LockoutConfig) *Lockout {
	return &Lockout{redis: redisClient, config: cfg}
}

func (l *Lockout) counterKey(accountID string) string {
	return "ilo:cnt:" + accountID
}

func (l *Lockout) lockKey(accountID string) string {
	return "ilo:lock:" + accountID
}

// RecordFailure increments the failure counter for an account. When the
// counter reaches the configured threshold the account is locked for the
// full window, the counter is reset, and (true, retryAfter) is returned.
func (l *Lockout) RecordFailure(ctx context.Context, accountID string) (bool, time.Duration, error) {
	if !l.config.Enabled || accountID == "" {
		return false, 0, nil
	}

	count, err := l.redis.Incr(ctx, l.counterKey(accountID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Window > 0 {
		// Counter carries the same TTL as the lockout window so stale
		// failures age out on their own.
		if err := l.redis.Expire(ctx, l.counterKey(accountID), l.config.Window).Err(); err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	if count < int64(l.config.MaxFailures) {
		return false, 0, nil
	}

	_, err = l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.lockKey(accountID), "1", l.config.Window)
		pipe.Del(ctx, l.counterKey(accountID))
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return true, l.config.Window, nil
}

// RecordSuccess resets the failure counter. An active lockout is never
// cleared here: a lock expires only by its window elapsing.
func (l *Lockout) RecordSuccess(ctx context.Context, accountID string) error {
	if !l.config.Enabled || accountID == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.counterKey(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Status reports whether the account is currently locked out and, if so,
// how long until the lock expires.
func (l *Lockout) Status(ctx context.Context, accountID string) (bool, time.Duration, error) {
	if !l.config.Enabled || accountID == "" {
		return false, 0, nil
	}

	ttl, err := l.redis.PTTL(ctx, l.lockKey(accountID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl <= 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

// FailureCount returns the current failure counter for an account.
func (l *Lockout) FailureCount(ctx context.Context, accountID string) (int, error) {
	if !l.config.Enabled || accountID == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.counterKey(accountID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}

// Package limiters implements the progressive account lockout tracker.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds the escalation thresholds for the lockout tracker.
// A soft lock is applied at SoftThreshold failures and replaced by a hard
// lock once HardThreshold is reached, even while the soft lock is active.
type LockoutConfig struct {
	SoftThreshold    int
	SoftLockDuration time.Duration
	HardThreshold    int
	HardLockDuration time.Duration
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// LockStatus reports whether an account is currently locked and for how
// much longer.
type LockStatus struct {
	Locked    bool
	Remaining time.Duration
}

// RemainingMinutes returns the remaining lock time as a ceiling of whole
// minutes, the granularity surfaced to callers.
func (s LockStatus) RemainingMinutes() int {
	if !s.Locked || s.Remaining <= 0 {
		return 0
	}
	mins := int(s.Remaining / time.Minute)
	if s.Remaining%time.Minute != 0 {
		mins++
	}
	return mins
}

// LockoutTracker counts failed credential submissions per account and
// escalates to timed locks. The failure counter carries no TTL: it is
// cleared only by Reset after a fully completed authentication.
type LockoutTracker struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutTracker creates a tracker on the given Redis client.
func NewLockoutTracker(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutTracker {
	return &LockoutTracker{redis: redisClient, config: cfg}
}

func (l *LockoutTracker) countKey(accountKey string) string {
	return "alo:cnt:" + accountKey
}

func (l *LockoutTracker) lockKey(accountKey string) string {
	return "alo:lock:" + accountKey
}

// RecordFailure increments the failure counter and re-evaluates escalation.
// Reaching SoftThreshold applies a soft lock; reaching HardThreshold
// overwrites any live soft lock with the hard duration.
func (l *LockoutTracker) RecordFailure(ctx context.Context, accountKey string) error {
	if accountKey == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, l.countKey(accountKey)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	var lockFor time.Duration
	switch {
	case count >= int64(l.config.HardThreshold):
		lockFor = l.config.HardLockDuration
	case count >= int64(l.config.SoftThreshold):
		lockFor = l.config.SoftLockDuration
	default:
		return nil
	}

	// SET with an expiry replaces the previous lock unconditionally, so a
	// soft lock in progress is extended to the hard duration at the hard
	// threshold.
	if err := l.redis.Set(ctx, l.lockKey(accountKey), count, lockFor).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Status reports whether the account is locked. The lock key's TTL is the
// authoritative remaining duration; an absent or expired key means
// unlocked.
func (l *LockoutTracker) Status(ctx context.Context, accountKey string) (LockStatus, error) {
	if accountKey == "" {
		return LockStatus{}, nil
	}

	ttl, err := l.redis.PTTL(ctx, l.lockKey(accountKey)).Result()
	if err != nil {
		return LockStatus{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl <= 0 {
		// -2 key missing, -1 no expiry (never written by this tracker).
		return LockStatus{}, nil
	}
	return LockStatus{Locked: true, Remaining: ttl}, nil
}

// Reset clears both the counter and any live lock. Callers invoke it only
// after a fully completed authentication, never for merely passing the
// lock check.
func (l *LockoutTracker) Reset(ctx context.Context, accountKey string) error {
	if accountKey == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.countKey(accountKey), l.lockKey(accountKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current counter value, for introspection and
// tests.
func (l *LockoutTracker) FailureCount(ctx context.Context, accountKey string) (int, error) {
	if accountKey == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.countKey(accountKey)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}

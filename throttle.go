package authcore

import (
	"context"
	"time"

	"github.com/lexireport/authcore/session"
)

const loginAttemptsPrefix = "login_attempts:"

// LoginThrottle tracks failed logins per user in a counter with a rolling
// TTL window. The lock is evaluated before password verification, so a
// locked account leaks nothing about whether the supplied password was
// correct, and brute-force traffic never reaches the hasher.
type LoginThrottle struct {
	sessions *session.Store
	config   ThrottleConfig
}

// NewLoginThrottle builds a throttle on the shared store's counters.
func NewLoginThrottle(sessions *session.Store, cfg ThrottleConfig) *LoginThrottle {
	return &LoginThrottle{sessions: sessions, config: cfg}
}

func attemptsKey(userID string) string {
	return loginAttemptsPrefix + userID
}

// CheckAllowed reports whether the user is still under the attempt limit.
func (l *LoginThrottle) CheckAllowed(ctx context.Context, userID string) (bool, error) {
	count, err := l.sessions.CounterValue(ctx, attemptsKey(userID))
	if err != nil {
		return false, err
	}
	return count < int64(l.config.MaxAttempts), nil
}

// RecordFailure atomically increments the counter; the first failure arms
// the window TTL so the counter self-expires if no more failures follow.
func (l *LoginThrottle) RecordFailure(ctx context.Context, userID string) (int64, error) {
	return l.sessions.Increment(ctx, attemptsKey(userID), l.config.Window)
}

// Reset deletes the counter; called on successful authentication.
func (l *LoginThrottle) Reset(ctx context.Context, userID string) error {
	return l.sessions.DeleteKey(ctx, attemptsKey(userID))
}

// RemainingLockout returns how long the current lockout lasts, derived
// from the counter's remaining TTL.
func (l *LoginThrottle) RemainingLockout(ctx context.Context, userID string) (time.Duration, error) {
	return l.sessions.CounterTTL(ctx, attemptsKey(userID))
}

package authcore

import (
	"context"

	"github.com/lexireport/authcore/password"
	"github.com/lexireport/authcore/session"
	"github.com/lexireport/authcore/store"
)

const passwordHistoryPrefix = "password_history:"

// Credentials verifies and rotates password hashes, enforcing the
// strength policy and the recent-password history held in the shared
// store.
type Credentials struct {
	hasher       *password.Hasher
	users        store.UserRepository
	sessions     *session.Store
	historyDepth int64
}

// NewCredentials wires the credential store.
func NewCredentials(hasher *password.Hasher, users store.UserRepository, sessions *session.Store, historyDepth int64) *Credentials {
	return &Credentials{hasher: hasher, users: users, sessions: sessions, historyDepth: historyDepth}
}

func historyKey(userID string) string {
	return passwordHistoryPrefix + userID
}

// Verify compares a plaintext password against the user's stored hash.
// A malformed stored hash verifies as false rather than erroring, so a
// corrupted row cannot be distinguished from a wrong password by callers.
func (c *Credentials) Verify(user *store.User, plaintext string) bool {
	ok, err := c.hasher.Verify(plaintext, user.PasswordHash)
	return err == nil && ok
}

// Hash derives a new argon2id hash without any policy checks; use
// SetPassword for the full rotation path.
func (c *Credentials) Hash(plaintext string) (string, error) {
	return c.hasher.Hash(plaintext)
}

// CheckHistory returns ErrPasswordReuse when the candidate matches any of
// the user's recent hashes.
func (c *Credentials) CheckHistory(ctx context.Context, userID, candidate string) error {
	hashes, err := c.sessions.ListRange(ctx, historyKey(userID), 0, c.historyDepth-1)
	if err != nil {
		return err
	}
	for _, old := range hashes {
		if ok, err := c.hasher.Verify(candidate, old); err == nil && ok {
			return ErrPasswordReuse
		}
	}
	return nil
}

// RecordHistory appends a hash to the user's capped history list.
func (c *Credentials) RecordHistory(ctx context.Context, userID, hash string) error {
	return c.sessions.PushCapped(ctx, historyKey(userID), []byte(hash), c.historyDepth)
}

// SetPassword validates strength and history, stores the new hash, and
// records it in the history. Session revocation is the gateway's job.
func (c *Credentials) SetPassword(ctx context.Context, user *store.User, plaintext string) error {
	if err := password.ValidateStrength(plaintext); err != nil {
		return err
	}
	if c.Verify(user, plaintext) {
		return ErrPasswordReuse
	}
	if err := c.CheckHistory(ctx, user.ID, plaintext); err != nil {
		return err
	}
	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	if err := c.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	user.PasswordHash = hash
	return c.RecordHistory(ctx, user.ID, hash)
}

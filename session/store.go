package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable indicates the backing Redis store could not be
// reached or returned an unexpected failure. Callers are expected to fail
// closed on permission decisions when they see it.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Kind distinguishes access sessions from refresh sessions. Each kind has
// its own key prefix so the two populations can expire independently.
type Kind string

const (
	// KindAccess marks a session backing an access token.
	KindAccess Kind = "access"
	// KindRefresh marks a session backing a refresh token.
	KindRefresh Kind = "refresh"
)

// Key prefixes. One component per prefix; see the package comment.
const (
	accessPrefix  = "session:"
	refreshPrefix = "refresh_token:"
)

// Store is the key-value wrapper shared by the token service, login
// throttle, permission resolver, and audit trail. It holds no state beyond
// the client handle and is safe for concurrent use.
type Store struct {
	redis redis.UniversalClient
}

// NewStore wraps an already-connected Redis client. The caller owns the
// client's lifecycle (connect/close); the store never closes it.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

func kindPrefix(kind Kind) string {
	if kind == KindRefresh {
		return refreshPrefix
	}
	return accessPrefix
}

func sessionKey(kind Kind, id string) string {
	return kindPrefix(kind) + id
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// CreateSession records a session of the given kind, mapping the session ID
// to the owning user. The TTL must equal the corresponding token lifetime:
// the record's existence is the sole source of truth for token liveness.
func (s *Store) CreateSession(ctx context.Context, kind Kind, id, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	if err := s.redis.Set(ctx, sessionKey(kind, id), userID, ttl).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// SessionExists reports whether a live session of the given kind exists.
// An expired key is indistinguishable from a deleted one.
func (s *Store) SessionExists(ctx context.Context, kind Kind, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, sessionKey(kind, id)).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return n > 0, nil
}

// SessionUser returns the user ID a session maps to, or "" when the
// session is absent.
func (s *Store) SessionUser(ctx context.Context, kind Kind, id string) (string, error) {
	val, err := s.redis.Get(ctx, sessionKey(kind, id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrapUnavailable(err)
	}
	return val, nil
}

// DeleteSession removes both the access and refresh records for a session
// ID. Deleting an absent key is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(KindAccess, id), sessionKey(KindRefresh, id)).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// SessionsForUser enumerates all live access sessions and returns the IDs
// belonging to userID. This is a scan-and-filter pass with no secondary
// index; session volume per user is small and revocation is not
// latency-critical.
func (s *Store) SessionsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	iter := s.redis.Scan(ctx, 0, accessPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		owner, err := s.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		if owner == userID {
			ids = append(ids, key[len(accessPrefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return ids, nil
}

// Increment atomically bumps a counter and arms its expiry window on the
// first increment, so an abandoned counter self-expires.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	if count == 1 && window > 0 {
		if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, wrapUnavailable(err)
		}
	}
	return count, nil
}

// CounterValue reads a counter, returning 0 when it is absent or expired.
func (s *Store) CounterValue(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return count, nil
}

// CounterTTL returns the remaining lifetime of a counter, or 0 when the
// counter is absent or carries no expiry.
func (s *Store) CounterTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	if ttl < 0 {
		// -2 key missing, -1 no expiry set.
		return 0, nil
	}
	return ttl, nil
}

// DeleteKey removes a key of any shape. Absent keys are not an error.
func (s *Store) DeleteKey(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// SetFlag writes an expiring sentinel key.
func (s *Store) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("flag ttl must be positive")
	}
	if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// FlagExists reports whether an expiring sentinel key is still live.
func (s *Store) FlagExists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return n > 0, nil
}

// ScanPrefix returns every live key beneath prefix.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return keys, nil
}

// PushCapped prepends payload to a list and trims it to max entries, so
// writes stay O(1) regardless of the list's age.
func (s *Store) PushCapped(ctx context.Context, key string, payload []byte, max int64) error {
	if max <= 0 {
		return errors.New("list cap must be positive")
	}
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ListRange reads list entries from newest (index 0) to oldest.
func (s *Store) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := s.redis.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return vals, nil
}

// ListLen returns the current length of a list.
func (s *Store) ListLen(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return n, nil
}

// Ping verifies connectivity to the store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

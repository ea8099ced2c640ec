package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb), mr
}

func TestSessionLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, KindAccess, "s1", "u1", time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}

	ok, err := store.SessionExists(ctx, KindAccess, "s1")
	if err != nil || !ok {
		t.Fatalf("expected session to exist, got ok=%v err=%v", ok, err)
	}

	owner, err := store.SessionUser(ctx, KindAccess, "s1")
	if err != nil || owner != "u1" {
		t.Fatalf("expected owner u1, got %q err=%v", owner, err)
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	ok, err = store.SessionExists(ctx, KindAccess, "s1")
	if err != nil || ok {
		t.Fatalf("expected session gone, got ok=%v err=%v", ok, err)
	}
}

func TestDeleteSessionIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.DeleteSession(ctx, "never-existed"); err != nil {
		t.Fatalf("deleting an absent session must not fail: %v", err)
	}
	if err := store.DeleteSession(ctx, "never-existed"); err != nil {
		t.Fatalf("repeat delete must not fail: %v", err)
	}
}

func TestSessionExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateSession(ctx, KindRefresh, "r1", "u1", time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ok, err := store.SessionExists(ctx, KindRefresh, "r1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("session should have expired with its TTL")
	}
}

func TestSessionsForUserFiltersByOwner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("u1-s%d", i)
		if err := store.CreateSession(ctx, KindAccess, id, "u1", time.Minute); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}
	if err := store.CreateSession(ctx, KindAccess, "u2-s0", "u2", time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}

	ids, err := store.SessionsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("sessions for user: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 sessions for u1, got %d: %v", len(ids), ids)
	}
	for _, id := range ids {
		if id == "u2-s0" {
			t.Fatal("u2 session leaked into u1 scan")
		}
	}
}

func TestIncrementArmsWindowOnce(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := store.Increment(ctx, "login_attempts:u1", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	ttl, err := store.CounterTTL(ctx, "login_attempts:u1")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within the window, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	count, err := store.CounterValue(ctx, "login_attempts:u1")
	if err != nil {
		t.Fatalf("counter value: %v", err)
	}
	if count != 0 {
		t.Fatalf("counter should self-expire, got %d", count)
	}
}

func TestFlagExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SetFlag(ctx, "revoked_permission:u1:report:update", 10*time.Minute); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	ok, err := store.FlagExists(ctx, "revoked_permission:u1:report:update")
	if err != nil || !ok {
		t.Fatalf("expected flag live, got ok=%v err=%v", ok, err)
	}

	mr.FastForward(11 * time.Minute)

	ok, err = store.FlagExists(ctx, "revoked_permission:u1:report:update")
	if err != nil {
		t.Fatalf("flag exists: %v", err)
	}
	if ok {
		t.Fatal("flag should have expired")
	}
}

func TestPushCappedEvictsOldest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		payload := []byte(fmt.Sprintf("entry-%d", i))
		if err := store.PushCapped(ctx, "log", payload, 3); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	vals, err := store.ListRange(ctx, "log", 0, -1)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(vals))
	}
	if vals[0] != "entry-4" || vals[2] != "entry-2" {
		t.Fatalf("expected newest-first with oldest evicted, got %v", vals)
	}
}

func TestStoreUnavailableWrapped(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Close()

	if _, err := store.SessionExists(ctx, KindAccess, "s1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Increment(ctx, "c", time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

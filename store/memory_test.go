package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUserLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &User{ID: "u1", Email: "Alice@Example.com", PasswordHash: "h", Role: "user", Active: true}
	if err := m.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Create(ctx, &User{ID: "u1", Email: "other@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on id reuse, got %v", err)
	}
	if err := m.Create(ctx, &User{ID: "u2", Email: "alice@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on email reuse, got %v", err)
	}

	got, err := m.GetByEmail(ctx, "  ALICE@example.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected u1, got %q", got.ID)
	}

	if err := m.SetActive(ctx, "u1", false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	got, err = m.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Active {
		t.Fatal("expected user deactivated")
	}

	if _, err := m.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryGrants(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Create(ctx, &User{ID: "u1", Email: "a@b.c", Active: true}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Add(ctx, Grant{UserID: "missing", Permission: "report:read"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	for _, perm := range []string{"report:read", "report:update"} {
		if err := m.Add(ctx, Grant{UserID: "u1", Permission: perm, GrantedBy: "admin"}); err != nil {
			t.Fatalf("add grant: %v", err)
		}
	}

	perms, err := m.Permissions(ctx, "u1")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 grants, got %v", perms)
	}

	if err := m.Remove(ctx, "u1", "report:update"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	perms, err = m.Permissions(ctx, "u1")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(perms) != 1 || perms[0] != "report:read" {
		t.Fatalf("expected only report:read, got %v", perms)
	}

	// Removing an absent grant is not an error.
	if err := m.Remove(ctx, "u1", "report:update"); err != nil {
		t.Fatalf("repeat remove: %v", err)
	}
}

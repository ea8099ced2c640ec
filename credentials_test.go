package authcore

import (
	"context"
	"errors"
	"testing"
)

func newTestCredentials(t *testing.T) (*Credentials, *testEnv) {
	t.Helper()
	env := newTestEnv(t, func(cfg *Config) {
		cfg.PasswordHistoryDepth = 3
	})
	return env.gateway.credentials, env
}

func TestCredentialsVerify(t *testing.T) {
	creds, env := newTestCredentials(t)

	user := seedUser(t, env, "u1", RoleUser)
	hash, err := creds.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user.PasswordHash = hash

	if !creds.Verify(user, testPassword) {
		t.Error("correct password must verify")
	}
	if creds.Verify(user, "wrong password") {
		t.Error("wrong password must not verify")
	}

	user.PasswordHash = "not-a-phc-string"
	if creds.Verify(user, testPassword) {
		t.Error("a malformed stored hash must verify as false")
	}
}

func TestSetPasswordEnforcesStrength(t *testing.T) {
	creds, env := newTestCredentials(t)
	ctx := context.Background()

	user := seedUser(t, env, "u1", RoleUser)

	for _, weak := range []string{"short", "alllowercase1!", "NoDigits!!", "password123"} {
		if err := creds.SetPassword(ctx, user, weak); !errors.Is(err, ErrPasswordPolicy) {
			t.Errorf("SetPassword(%q) = %v, want ErrPasswordPolicy", weak, err)
		}
	}
}

func TestSetPasswordRejectsCurrentPassword(t *testing.T) {
	creds, env := newTestCredentials(t)
	ctx := context.Background()

	user := seedUser(t, env, "u1", RoleUser)
	if err := creds.SetPassword(ctx, user, testPassword); err != nil {
		t.Fatalf("initial set: %v", err)
	}

	if err := creds.SetPassword(ctx, user, testPassword); !errors.Is(err, ErrPasswordReuse) {
		t.Errorf("reusing the current password: %v, want ErrPasswordReuse", err)
	}
}

func TestSetPasswordRejectsRecentHistory(t *testing.T) {
	creds, env := newTestCredentials(t)
	ctx := context.Background()

	user := seedUser(t, env, "u1", RoleUser)
	if err := creds.SetPassword(ctx, user, testPassword); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := creds.SetPassword(ctx, user, nextPassword); err != nil {
		t.Fatalf("second set: %v", err)
	}

	// The first password is still within the history window.
	if err := creds.SetPassword(ctx, user, testPassword); !errors.Is(err, ErrPasswordReuse) {
		t.Errorf("reusing a recent password: %v, want ErrPasswordReuse", err)
	}
}

func TestPasswordHistoryIsCapped(t *testing.T) {
	creds, env := newTestCredentials(t)
	ctx := context.Background()

	user := seedUser(t, env, "u1", RoleUser)
	rotation := []string{
		"R0tation!One",
		"R0tation!Two",
		"R0tation!Three",
		"R0tation!Four",
	}
	for _, pw := range rotation {
		if err := creds.SetPassword(ctx, user, pw); err != nil {
			t.Fatalf("set %q: %v", pw, err)
		}
	}

	// Depth is 3, so the first rotation has aged out and may return.
	if err := creds.SetPassword(ctx, user, rotation[0]); err != nil {
		t.Errorf("reusing an aged-out password: %v, want nil", err)
	}
}

func TestSetPasswordUpdatesStoredHash(t *testing.T) {
	creds, env := newTestCredentials(t)
	ctx := context.Background()

	user := seedUser(t, env, "u1", RoleUser)
	if err := creds.SetPassword(ctx, user, testPassword); err != nil {
		t.Fatalf("set: %v", err)
	}

	stored, err := env.users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !creds.Verify(stored, testPassword) {
		t.Error("the persisted hash must verify the new password")
	}
	if user.PasswordHash != stored.PasswordHash {
		t.Error("the in-memory user must carry the new hash too")
	}
}

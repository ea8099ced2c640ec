package authcore

import (
	"context"
	"testing"
	"time"
)

func newTestThrottle(t *testing.T) (*LoginThrottle, *testEnv) {
	t.Helper()
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Throttle = ThrottleConfig{MaxAttempts: 3, Window: 10 * time.Minute}
	})
	return env.gateway.throttle, env
}

func TestThrottleAllowsUnderLimit(t *testing.T) {
	throttle, _ := newTestThrottle(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	allowed, err := throttle.CheckAllowed(ctx, "u1")
	if err != nil {
		t.Fatalf("check allowed: %v", err)
	}
	if !allowed {
		t.Error("two of three failures must not lock the account")
	}
}

func TestThrottleLocksAtLimit(t *testing.T) {
	throttle, _ := newTestThrottle(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	allowed, err := throttle.CheckAllowed(ctx, "u1")
	if err != nil {
		t.Fatalf("check allowed: %v", err)
	}
	if allowed {
		t.Error("the third failure must lock the account")
	}

	remaining, err := throttle.RemainingLockout(ctx, "u1")
	if err != nil {
		t.Fatalf("remaining lockout: %v", err)
	}
	if remaining <= 0 || remaining > 10*time.Minute {
		t.Errorf("remaining = %v, want within the 10m window", remaining)
	}

	// Other users are unaffected.
	allowed, err = throttle.CheckAllowed(ctx, "u2")
	if err != nil || !allowed {
		t.Errorf("u2 allowed=%v err=%v, want a clean slate", allowed, err)
	}
}

func TestThrottleWindowExpires(t *testing.T) {
	throttle, env := newTestThrottle(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	env.mr.FastForward(10*time.Minute + time.Second)

	allowed, err := throttle.CheckAllowed(ctx, "u1")
	if err != nil {
		t.Fatalf("check allowed: %v", err)
	}
	if !allowed {
		t.Error("the lockout must clear itself once the window elapses")
	}
}

func TestThrottleWindowArmedByFirstFailureOnly(t *testing.T) {
	throttle, env := newTestThrottle(t)
	ctx := context.Background()

	if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	env.mr.FastForward(9 * time.Minute)

	// Later failures must not push the expiry out.
	for i := 0; i < 2; i++ {
		if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	env.mr.FastForward(time.Minute + time.Second)

	allowed, err := throttle.CheckAllowed(ctx, "u1")
	if err != nil {
		t.Fatalf("check allowed: %v", err)
	}
	if !allowed {
		t.Error("window must run from the first failure, not slide on later ones")
	}
}

func TestThrottleReset(t *testing.T) {
	throttle, _ := newTestThrottle(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := throttle.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := throttle.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	allowed, err := throttle.CheckAllowed(ctx, "u1")
	if err != nil {
		t.Fatalf("check allowed: %v", err)
	}
	if !allowed {
		t.Error("reset must clear the lockout")
	}
}

package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLockout(t *testing.T, cfg LockoutConfig) (*Lockout, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLockout(client, cfg), mr
}

func TestLockoutBelowThreshold(t *testing.T) {
	lockout, _ := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 3, Window: time.Minute})

	for i := 0; i < 2; i++ {
		locked, _, err := lockout.RecordFailure(context.Background(), "acct-1")
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if locked {
			t.Fatal("must not lock below the threshold")
		}
	}

	count, err := lockout.FailureCount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("failure count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestLockoutAtThreshold(t *testing.T) {
	lockout, _ := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 3, Window: time.Minute})

	lockout.RecordFailure(context.Background(), "acct-1")
	lockout.RecordFailure(context.Background(), "acct-1")

	locked, retryAfter, err := lockout.RecordFailure(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if !locked {
		t.Fatal("threshold failure must lock")
	}
	if retryAfter != time.Minute {
		t.Fatalf("retryAfter = %v, want %v", retryAfter, time.Minute)
	}

	// The counter resets when the lock engages.
	count, err := lockout.FailureCount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("failure count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 after lock", count)
	}

	isLocked, remaining, err := lockout.Status(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !isLocked || remaining <= 0 {
		t.Fatalf("status = (%v, %v), want locked with remaining time", isLocked, remaining)
	}
}

func TestLockoutSuccessResetsCounterNotLock(t *testing.T) {
	lockout, _ := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 2, Window: time.Minute})

	lockout.RecordFailure(context.Background(), "acct-1")
	if err := lockout.RecordSuccess(context.Background(), "acct-1"); err != nil {
		t.Fatalf("record success: %v", err)
	}

	count, _ := lockout.FailureCount(context.Background(), "acct-1")
	if count != 0 {
		t.Fatalf("count = %d, want 0 after success", count)
	}

	// Trip the lock, then verify success does not clear it.
	lockout.RecordFailure(context.Background(), "acct-1")
	lockout.RecordFailure(context.Background(), "acct-1")
	if err := lockout.RecordSuccess(context.Background(), "acct-1"); err != nil {
		t.Fatalf("record success: %v", err)
	}

	isLocked, _, err := lockout.Status(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !isLocked {
		t.Fatal("an active lock must survive RecordSuccess")
	}
}

func TestLockoutExpiresWithWindow(t *testing.T) {
	lockout, mr := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 1, Window: time.Minute})

	lockout.RecordFailure(context.Background(), "acct-1")

	mr.FastForward(time.Minute + time.Second)

	isLocked, _, err := lockout.Status(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if isLocked {
		t.Fatal("lock must expire with its window")
	}
}

func TestLockoutCounterAgesOut(t *testing.T) {
	lockout, mr := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 3, Window: time.Minute})

	lockout.RecordFailure(context.Background(), "acct-1")
	lockout.RecordFailure(context.Background(), "acct-1")

	mr.FastForward(time.Minute + time.Second)

	count, err := lockout.FailureCount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("failure count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 after the window", count)
	}
}

func TestLockoutDisabled(t *testing.T) {
	lockout, _ := newTestLockout(t, LockoutConfig{Enabled: false, MaxFailures: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		locked, _, err := lockout.RecordFailure(context.Background(), "acct-1")
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if locked {
			t.Fatal("disabled tracker must never lock")
		}
	}

	isLocked, _, err := lockout.Status(context.Background(), "acct-1")
	if err != nil || isLocked {
		t.Fatalf("status = (%v, %v), want unlocked nil", isLocked, err)
	}
}

func TestLockoutAccountsAreIsolated(t *testing.T) {
	lockout, _ := newTestLockout(t, LockoutConfig{Enabled: true, MaxFailures: 1, Window: time.Minute})

	lockout.RecordFailure(context.Background(), "acct-1")

	isLocked, _, err := lockout.Status(context.Background(), "acct-2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if isLocked {
		t.Fatal("lockout must be scoped per account")
	}
}

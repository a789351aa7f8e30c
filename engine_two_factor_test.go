package goIdentity

import (
	"context"
	"testing"
	"time"
)

func setupTwoFactorAccount(t *testing.T, env *testEnv) string {
	t.Helper()

	reg := env.register(t, testEmail)
	if err := env.engine.EnableTwoFactor(context.Background(), reg.AccountID); err != nil {
		t.Fatalf("enable two factor: %v", err)
	}
	return reg.AccountID
}

func startChallenge(t *testing.T, env *testEnv, accountID string) string {
	t.Helper()

	result := env.login(t, testEmail, testPassword)
	requireOutcome(t, result, SignInTwoFactorRequired)
	if result.AccountID != accountID {
		t.Fatalf("challenge account = %q, want %q", result.AccountID, accountID)
	}
	return env.notifier.lastCode(t)
}

func completeTwoFactor(t *testing.T, env *testEnv, accountID, code string) *SignInResult {
	t.Helper()

	result, err := env.engine.CompleteTwoFactor(context.Background(), accountID, code, false)
	if err != nil {
		t.Fatalf("complete two factor: %v", err)
	}
	return result
}

func TestCompleteTwoFactorSuccess(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	result := completeTwoFactor(t, env, accountID, code)

	requireOutcome(t, result, SignInAuthenticated)
	if result.AccessToken == "" {
		t.Fatal("authenticated result must carry a token")
	}

	info, err := env.engine.ValidateSession(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if info.AccountID != accountID {
		t.Fatalf("session account = %q, want %q", info.AccountID, accountID)
	}
}

func TestCompleteTwoFactorCodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInAuthenticated)

	// The consumed challenge is gone; replaying the code fails.
	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInRejected)
}

func TestCompleteTwoFactorWrongCode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.CountTwoFactorFailures = false
	env := newTestEnv(t, cfg)
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInRejected)

	// A wrong guess burns an attempt but not the challenge.
	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInAuthenticated)
}

func TestCompleteTwoFactorFailuresCountTowardLockout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 2
	cfg.Lockout.CountTwoFactorFailures = true
	env := newTestEnv(t, cfg)
	accountID := setupTwoFactorAccount(t, env)
	startChallenge(t, env, accountID)

	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInRejected)

	locked := completeTwoFactor(t, env, accountID, "000000")
	requireOutcome(t, locked, SignInLockedOut)
	if locked.RetryAfter <= 0 {
		t.Fatal("locked-out result must carry a positive RetryAfter")
	}
}

func TestCompleteTwoFactorAttemptsExceeded(t *testing.T) {
	cfg := testConfig(t)
	cfg.TwoFactor.MaxAttempts = 2
	cfg.Lockout.CountTwoFactorFailures = false
	env := newTestEnv(t, cfg)
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInRejected)
	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInRejected)

	// The challenge was invalidated by the attempt cap, so even the right
	// code is refused now.
	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInRejected)
}

func TestCompleteTwoFactorExpiredChallenge(t *testing.T) {
	cfg := testConfig(t)
	env := newTestEnv(t, cfg)
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	fastForward(env, cfg.TwoFactor.CodeTTL+time.Second)

	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInRejected)
}

func TestCompleteTwoFactorFreshLoginReplacesChallenge(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	accountID := setupTwoFactorAccount(t, env)

	stale := startChallenge(t, env, accountID)
	fresh := startChallenge(t, env, accountID)

	if stale != fresh {
		// Only the newest code may pass.
		requireOutcome(t, completeTwoFactor(t, env, accountID, stale), SignInRejected)
	}
	requireOutcome(t, completeTwoFactor(t, env, accountID, fresh), SignInAuthenticated)
}

func TestCompleteTwoFactorNotEnabled(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	reg := env.register(t, testEmail)

	requireOutcome(t, completeTwoFactor(t, env, reg.AccountID, "123456"), SignInRejected)
}

func TestCompleteTwoFactorUnknownAccount(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	requireOutcome(t, completeTwoFactor(t, env, "acct-missing", "123456"), SignInRejected)
}

func TestCompleteTwoFactorWhileLockedOut(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 2
	env := newTestEnv(t, cfg)
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInRejected)
	requireOutcome(t, completeTwoFactor(t, env, accountID, "000000"), SignInLockedOut)

	// Even the right code is refused while the lock is active.
	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInLockedOut)
}

func TestDisableTwoFactorClearsPendingChallenge(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	accountID := setupTwoFactorAccount(t, env)
	code := startChallenge(t, env, accountID)

	if err := env.engine.DisableTwoFactor(context.Background(), accountID); err != nil {
		t.Fatalf("disable two factor: %v", err)
	}

	requireOutcome(t, completeTwoFactor(t, env, accountID, code), SignInRejected)
	requireOutcome(t, env.login(t, testEmail, testPassword), SignInAuthenticated)
}

package goIdentity

import (
	"context"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	reg := env.register(t, testEmail)

	result := env.login(t, testEmail, testPassword)

	requireOutcome(t, result, SignInAuthenticated)
	if result.AccessToken == "" || result.SessionID == "" {
		t.Fatal("authenticated result must carry token and session ID")
	}
	if result.AccountID != reg.AccountID {
		t.Fatalf("account ID = %q, want %q", result.AccountID, reg.AccountID)
	}

	info, err := env.engine.ValidateSession(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if info.AccountID != reg.AccountID {
		t.Fatalf("session account = %q, want %q", info.AccountID, reg.AccountID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	env.register(t, testEmail)

	result := env.login(t, testEmail, "wrong-password-1")

	requireOutcome(t, result, SignInRejected)
	if result.AccessToken != "" {
		t.Fatal("rejected result must not carry a token")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	result := env.login(t, "nobody@example.com", testPassword)

	requireOutcome(t, result, SignInRejected)
}

func TestLoginEmptyInput(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	env.register(t, testEmail)

	requireOutcome(t, env.login(t, "", testPassword), SignInRejected)
	requireOutcome(t, env.login(t, testEmail, ""), SignInRejected)
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 3
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	requireOutcome(t, env.login(t, testEmail, "bad-password-1"), SignInRejected)
	requireOutcome(t, env.login(t, testEmail, "bad-password-1"), SignInRejected)

	locked := env.login(t, testEmail, "bad-password-1")
	requireOutcome(t, locked, SignInLockedOut)
	if locked.RetryAfter <= 0 {
		t.Fatal("locked-out result must carry a positive RetryAfter")
	}
}

func TestLoginLockedOutSkipsVerification(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 2
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	env.login(t, testEmail, "bad-password-1")
	env.login(t, testEmail, "bad-password-1")

	// Correct credentials are refused while the lock is active.
	result := env.login(t, testEmail, testPassword)
	requireOutcome(t, result, SignInLockedOut)
	if result.RetryAfter <= 0 {
		t.Fatal("expected remaining lock duration")
	}
}

func TestLoginLockExpiresAfterWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 2
	cfg.Lockout.Window = time.Minute
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	env.login(t, testEmail, "bad-password-1")
	env.login(t, testEmail, "bad-password-1")
	requireOutcome(t, env.login(t, testEmail, testPassword), SignInLockedOut)

	fastForward(env, time.Minute+time.Second)

	requireOutcome(t, env.login(t, testEmail, testPassword), SignInAuthenticated)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.MaxFailures = 3
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	env.login(t, testEmail, "bad-password-1")
	env.login(t, testEmail, "bad-password-1")
	requireOutcome(t, env.login(t, testEmail, testPassword), SignInAuthenticated)

	// The counter restarted from zero, so two more failures stay short of
	// the threshold.
	requireOutcome(t, env.login(t, testEmail, "bad-password-1"), SignInRejected)
	requireOutcome(t, env.login(t, testEmail, "bad-password-1"), SignInRejected)
}

func TestLoginLockoutDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.Enabled = false
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	for i := 0; i < 10; i++ {
		requireOutcome(t, env.login(t, testEmail, "bad-password-1"), SignInRejected)
	}
	requireOutcome(t, env.login(t, testEmail, testPassword), SignInAuthenticated)
}

func TestLoginRequiresConfirmedEmail(t *testing.T) {
	cfg := testConfig(t)
	cfg.Confirmation.RequireForLogin = true
	env := newTestEnv(t, cfg)
	reg := env.register(t, testEmail)

	requireOutcome(t, env.login(t, testEmail, testPassword), SignInRejected)

	if err := env.engine.ConfirmEmail(context.Background(), reg.AccountID, reg.ConfirmationToken); err != nil {
		t.Fatalf("confirm email: %v", err)
	}

	requireOutcome(t, env.login(t, testEmail, testPassword), SignInAuthenticated)
}

func TestLoginTwoFactorRequired(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	reg := env.register(t, testEmail)
	if err := env.engine.EnableTwoFactor(context.Background(), reg.AccountID); err != nil {
		t.Fatalf("enable two factor: %v", err)
	}

	before := env.notifier.count()
	result := env.login(t, testEmail, testPassword)

	requireOutcome(t, result, SignInTwoFactorRequired)
	if result.AccessToken != "" || result.SessionID != "" {
		t.Fatal("no session may be issued before the second factor")
	}
	if !result.TwoFactorDelivered {
		t.Fatal("expected the code to be delivered")
	}
	if env.notifier.count() != before+1 {
		t.Fatal("expected exactly one code delivery")
	}

	code := env.notifier.lastCode(t)
	if len(code) != env.engine.config.TwoFactor.CodeDigits {
		t.Fatalf("code length = %d, want %d", len(code), env.engine.config.TwoFactor.CodeDigits)
	}
}

func TestLoginRememberMeExtendsSession(t *testing.T) {
	cfg := testConfig(t)
	env := newTestEnv(t, cfg)
	env.register(t, testEmail)

	result, err := env.engine.Login(context.Background(), testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireOutcome(t, result, SignInAuthenticated)

	ttl := env.redis.TTL(cfg.Session.RedisPrefix + ":" + result.SessionID)
	if ttl <= cfg.Session.Lifetime {
		t.Fatalf("remember-me session TTL = %v, want > %v", ttl, cfg.Session.Lifetime)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	env.register(t, testEmail)
	result := env.login(t, testEmail, testPassword)

	if err := env.engine.Logout(context.Background(), result.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := env.engine.ValidateSession(context.Background(), result.AccessToken); err == nil {
		t.Fatal("session must be invalid after logout")
	}
}

func TestLogoutAllForAccount(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	reg := env.register(t, testEmail)

	first := env.login(t, testEmail, testPassword)
	second := env.login(t, testEmail, testPassword)

	if err := env.engine.LogoutAllForAccount(context.Background(), reg.AccountID); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	for _, token := range []string{first.AccessToken, second.AccessToken} {
		if _, err := env.engine.ValidateSession(context.Background(), token); err == nil {
			t.Fatal("all sessions must be invalid after logout-all")
		}
	}
}

func TestValidateSessionGarbageToken(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	if _, err := env.engine.ValidateSession(context.Background(), "garbage.token.value"); err == nil {
		t.Fatal("garbage tokens must be rejected")
	}
}

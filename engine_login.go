package goIdentity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/identium/goIdentity/internal"
	"github.com/identium/goIdentity/internal/stores"
	"github.com/identium/goIdentity/notify"
	"github.com/identium/goIdentity/session"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A nil error with Outcome other than [SignInAuthenticated] is a terminal
// decision, not a transport failure: rejected credentials, an active
// lockout, and a pending two-factor challenge all return nil errors.
func (e *Engine) Login(ctx context.Context, email, pass string, rememberMe bool) (*SignInResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	result, err := e.loginInternal(ctx, email, pass, rememberMe)
	if err == nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	return result, err
}

func (e *Engine) loginInternal(ctx context.Context, email, pass string, rememberMe bool) (*SignInResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return &SignInResult{Outcome: SignInRejected}, nil
	}

	account, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Same argon2 cost as the real path so timing does not
			// reveal whether the address exists.
			e.passwordHash.DummyVerify(pass)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"identifier": email,
					"reason":     "account_not_found",
				}
			})
			return &SignInResult{Outcome: SignInRejected}, nil
		}
		return nil, ErrAccountUnavailable
	}

	locked, retryAfter, err := e.lockout.Status(ctx, account.AccountID)
	if err != nil {
		return nil, ErrLockoutUnavailable
	}
	if locked {
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLockedOut, false, account.AccountID, "", ErrAccountLocked, nil)
		return &SignInResult{
			Outcome:    SignInLockedOut,
			AccountID:  account.AccountID,
			RetryAfter: retryAfter,
		}, nil
	}

	ok, err := e.passwordHash.Verify(pass, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e.handleCredentialFailure(ctx, account.AccountID, email)
	}

	if err := e.lockout.RecordSuccess(ctx, account.AccountID); err != nil {
		return nil, ErrLockoutUnavailable
	}

	if e.config.Confirmation.RequireForLogin && !account.EmailConfirmed {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.AccountID, "", ErrUnauthorized, func() map[string]string {
			return map[string]string{
				"reason": "email_unconfirmed",
			}
		})
		return &SignInResult{Outcome: SignInRejected, AccountID: account.AccountID}, nil
	}

	if account.TwoFactorEnabled {
		return e.startTwoFactorChallenge(ctx, account)
	}

	result, err := e.issueSession(ctx, account, rememberMe)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.AccountID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "session_save_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.AccountID, result.SessionID, nil, nil)
	return result, nil
}

func (e *Engine) handleCredentialFailure(ctx context.Context, accountID, email string) (*SignInResult, error) {
	lockedNow, retryAfter, err := e.lockout.RecordFailure(ctx, accountID)
	if err != nil {
		return nil, ErrLockoutUnavailable
	}

	if lockedNow {
		e.metricInc(MetricLockoutTriggered)
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLockoutTriggered, false, accountID, "", ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"identifier": email,
			}
		})
		return &SignInResult{
			Outcome:    SignInLockedOut,
			AccountID:  accountID,
			RetryAfter: retryAfter,
		}, nil
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     "password_mismatch",
		}
	})
	return &SignInResult{Outcome: SignInRejected}, nil
}

func (e *Engine) startTwoFactorChallenge(ctx context.Context, account AccountRecord) (*SignInResult, error) {
	code, err := internal.NewOTP(e.config.TwoFactor.CodeDigits)
	if err != nil {
		return nil, ErrTwoFactorUnavailable
	}

	ttl := e.config.TwoFactor.CodeTTL
	challenge := &stores.TwoFactorChallenge{
		CodeHash:  internal.HashSecretBytes([]byte(code)),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}

	// Any earlier unconsumed challenge for the account is overwritten, so
	// only the latest code is ever valid.
	if err := e.challengeStore.Save(ctx, account.AccountID, challenge, ttl); err != nil {
		return nil, ErrTwoFactorUnavailable
	}

	delivered := true
	if err := e.notifier.Send(ctx, notify.Message{
		To:      account.Email,
		Subject: "Your sign-in code",
		Body:    "Your sign-in code: " + code,
	}); err != nil {
		delivered = false
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, account.AccountID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "two_factor_send_failed",
			}
		})
	}

	e.metricInc(MetricTwoFactorRequired)
	e.emitAudit(ctx, auditEventTwoFactorRequired, true, account.AccountID, "", nil, nil)

	return &SignInResult{
		Outcome:            SignInTwoFactorRequired,
		AccountID:          account.AccountID,
		TwoFactorDelivered: delivered,
	}, nil
}

func (e *Engine) issueSession(ctx context.Context, account AccountRecord, rememberMe bool) (*SignInResult, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	lifetime := e.sessionLifetime(rememberMe)
	now := time.Now()

	sess := &session.Session{
		SessionID:  sid.String(),
		AccountID:  account.AccountID,
		Email:      account.Email,
		RememberMe: rememberMe,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(lifetime).Unix(),
	}

	if err := e.sessionStore.Save(ctx, sess, lifetime); err != nil {
		return nil, ErrSessionUnavailable
	}

	token, err := e.jwtManager.CreateSession(account.AccountID, account.Email, sess.SessionID, lifetime)
	if err != nil {
		// Best effort; the orphaned session record expires on its own.
		_ = e.sessionStore.Delete(ctx, sess.SessionID)
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricSessionCreated)

	return &SignInResult{
		Outcome:     SignInAuthenticated,
		AccountID:   account.AccountID,
		AccessToken: token,
		SessionID:   sess.SessionID,
	}, nil
}

func (e *Engine) sessionLifetime(rememberMe bool) time.Duration {
	if rememberMe {
		return e.config.Session.RememberMeLifetime
	}
	return e.config.Session.Lifetime
}

package goIdentity

import (
	"context"
	"errors"

	internalaudit "github.com/identium/goIdentity/internal/audit"
	"github.com/identium/goIdentity/internal/limiters"
	"github.com/identium/goIdentity/internal/stores"
	"github.com/identium/goIdentity/jwt"
	"github.com/identium/goIdentity/password"
	"github.com/identium/goIdentity/session"
	"github.com/redis/go-redis/v9"
)

// Engine defines a public type used by goIdentity APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config            Config
	sessionStore      *session.Store
	confirmationStore *stores.ConfirmationStore
	challengeStore    *stores.ChallengeStore
	lockout           *limiters.Lockout
	audit             *internalaudit.Dispatcher
	metrics           *Metrics
	passwordHash      *password.Argon2
	jwtManager        *jwt.Manager
	accounts          AccountProvider
	notifier          Notifier
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateSession describes the validatesession operation and its observable behavior.
//
// ValidateSession may return an error when input validation, dependency calls, or security checks fail.
// ValidateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateSession(ctx context.Context, tokenStr string) (*SessionInfo, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseSession(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}

	sess, err := e.sessionStore.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, ErrUnauthorized
		}
		return nil, ErrSessionNotFound
	}

	if sess.AccountID != claims.AccountID {
		return nil, ErrUnauthorized
	}

	return &SessionInfo{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		SessionID: sess.SessionID,
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	err := e.sessionStore.Delete(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutSession, err == nil, "", sessionID, err, nil)
	return err
}

// LogoutAllForAccount describes the logoutallforaccount operation and its observable behavior.
//
// LogoutAllForAccount may return an error when input validation, dependency calls, or security checks fail.
// LogoutAllForAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAllForAccount(ctx context.Context, accountID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	err := e.sessionStore.DeleteAllForAccount(ctx, accountID)
	if err == nil {
		e.metricInc(MetricLogoutAll)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, err == nil, accountID, "", err, nil)
	return err
}

// EnableTwoFactor describes the enabletwofactor operation and its observable behavior.
//
// EnableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// EnableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EnableTwoFactor(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrInvalidInput
	}

	if err := e.accounts.SetTwoFactorEnabled(ctx, accountID, true); err != nil {
		mapped := mapProviderError(err)
		e.emitAudit(ctx, auditEventTwoFactorEnabled, false, accountID, "", mapped, nil)
		return mapped
	}

	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, accountID, "", nil, nil)
	return nil
}

// DisableTwoFactor describes the disabletwofactor operation and its observable behavior.
//
// DisableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// DisableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableTwoFactor(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrInvalidInput
	}

	if err := e.accounts.SetTwoFactorEnabled(ctx, accountID, false); err != nil {
		mapped := mapProviderError(err)
		e.emitAudit(ctx, auditEventTwoFactorDisabled, false, accountID, "", mapped, nil)
		return mapped
	}

	// A pending challenge from an earlier login attempt must not outlive
	// the setting change.
	if err := e.challengeStore.Delete(ctx, accountID); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorDisabled, false, accountID, "", ErrTwoFactorUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "challenge_cleanup_failed",
			}
		})
		return ErrTwoFactorUnavailable
	}

	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, accountID, "", nil, nil)
	return nil
}

func mapProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, ErrProviderDuplicateEmail):
		return ErrAccountExists
	default:
		return ErrAccountUnavailable
	}
}

package goIdentity

import (
	"context"
	"errors"

	"github.com/identium/goIdentity/internal"
	"github.com/identium/goIdentity/internal/stores"
)

// CompleteTwoFactor describes the completetwofactor operation and its observable behavior.
//
// CompleteTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// CompleteTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The submitted code is checked against the pending challenge issued by
// [Engine.Login]. A matching code consumes the challenge and produces an
// authenticated session; a mismatching code burns one attempt and, when the
// engine is configured to count two-factor failures toward lockout, one
// lockout failure as well.
func (e *Engine) CompleteTwoFactor(ctx context.Context, accountID, code string, rememberMe bool) (*SignInResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	if accountID == "" || code == "" {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, accountID, "", ErrInvalidInput, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return &SignInResult{Outcome: SignInRejected}, nil
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, accountID, "", ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"reason": "account_not_found",
				}
			})
			return &SignInResult{Outcome: SignInRejected}, nil
		}
		return nil, ErrAccountUnavailable
	}

	if !account.TwoFactorEnabled {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, accountID, "", ErrTwoFactorNotEnabled, func() map[string]string {
			return map[string]string{
				"reason": "two_factor_not_enabled",
			}
		})
		return &SignInResult{Outcome: SignInRejected}, nil
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

	consumeErr := e.challengeStore.Consume(ctx, account.AccountID, internal.HashSecretBytes([]byte(code)), e.config.TwoFactor.MaxAttempts)
	switch {
	case consumeErr == nil:
		// Verified below.
	case errors.Is(consumeErr, stores.ErrChallengeCodeMismatch):
		return e.handleTwoFactorMismatch(ctx, account.AccountID)
	case errors.Is(consumeErr, stores.ErrChallengeExpired):
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.AccountID, "", ErrTwoFactorExpired, func() map[string]string {
			return map[string]string{
				"reason": "challenge_expired",
			}
		})
		return &SignInResult{Outcome: SignInRejected, AccountID: account.AccountID}, nil
	case errors.Is(consumeErr, stores.ErrChallengeAttemptsExceeded):
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.AccountID, "", ErrTwoFactorAttemptsExceeded, func() map[string]string {
			return map[string]string{
				"reason": "attempts_exceeded",
			}
		})
		return &SignInResult{Outcome: SignInRejected, AccountID: account.AccountID}, nil
	case errors.Is(consumeErr, stores.ErrChallengeNotFound):
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.AccountID, "", ErrTwoFactorInvalid, func() map[string]string {
			return map[string]string{
				"reason": "challenge_not_found",
			}
		})
		return &SignInResult{Outcome: SignInRejected, AccountID: account.AccountID}, nil
	default:
		return nil, ErrTwoFactorUnavailable
	}

	if err := e.lockout.RecordSuccess(ctx, account.AccountID); err != nil {
		return nil, ErrLockoutUnavailable
	}

	result, err := e.issueSession(ctx, account, rememberMe)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.AccountID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "session_save_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, account.AccountID, result.SessionID, nil, nil)
	return result, nil
}

func (e *Engine) handleTwoFactorMismatch(ctx context.Context, accountID string) (*SignInResult, error) {
	if e.config.Lockout.CountTwoFactorFailures {
		lockedNow, retryAfter, err := e.lockout.RecordFailure(ctx, accountID)
		if err != nil {
			return nil, ErrLockoutUnavailable
		}
		if lockedNow {
			e.metricInc(MetricLockoutTriggered)
			e.metricInc(MetricLoginLockedOut)
			e.emitAudit(ctx, auditEventLockoutTriggered, false, accountID, "", ErrAccountLocked, func() map[string]string {
				return map[string]string{
					"reason": "two_factor_failures",
				}
			})
			return &SignInResult{
				Outcome:    SignInLockedOut,
				AccountID:  accountID,
				RetryAfter: retryAfter,
			}, nil
		}
	}

	e.metricInc(MetricTwoFactorFailure)
	e.emitAudit(ctx, auditEventTwoFactorFailure, false, accountID, "", ErrTwoFactorInvalid, func() map[string]string {
		return map[string]string{
			"reason": "code_mismatch",
		}
	})
	return &SignInResult{Outcome: SignInRejected, AccountID: accountID}, nil
}

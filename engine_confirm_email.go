package goIdentity

import (
	"context"
	"errors"

	"github.com/identium/goIdentity/internal"
	"github.com/identium/goIdentity/internal/stores"
)

// ConfirmEmail describes the confirmemail operation and its observable behavior.
//
// ConfirmEmail may return an error when input validation, dependency calls, or security checks fail.
// ConfirmEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The token is single-use: a successful confirmation consumes it, and any
// later presentation of the same token returns [ErrTokenAlreadyUsed] even
// though the account stays confirmed. Confirming an already-confirmed
// account with a fresh token succeeds without change.
func (e *Engine) ConfirmEmail(ctx context.Context, accountID, token string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if !e.config.Confirmation.Enabled {
		return ErrConfirmationDisabled
	}

	if accountID == "" || token == "" {
		e.metricInc(MetricConfirmationFailure)
		e.emitAudit(ctx, auditEventConfirmationFailure, false, accountID, "", ErrInvalidInput, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return ErrInvalidInput
	}

	tokenID, secret, err := internal.DecodeConfirmationToken(token)
	if err != nil {
		e.metricInc(MetricConfirmationFailure)
		e.emitAudit(ctx, auditEventConfirmationFailure, false, accountID, "", ErrTokenMalformed, func() map[string]string {
			return map[string]string{
				"reason": "token_malformed",
			}
		})
		return ErrTokenMalformed
	}

	_, err = e.confirmationStore.Consume(ctx, tokenID, internal.HashTokenSecret(secret), stores.PurposeEmailConfirmation, accountID)
	if err != nil {
		mapped := mapConfirmationStoreError(err)
		if errors.Is(mapped, ErrTokenAlreadyUsed) {
			e.metricInc(MetricConfirmationReplay)
			e.emitAudit(ctx, auditEventConfirmationReplay, false, accountID, "", mapped, nil)
			return mapped
		}
		e.metricInc(MetricConfirmationFailure)
		e.emitAudit(ctx, auditEventConfirmationFailure, false, accountID, "", mapped, nil)
		return mapped
	}

	if err := e.accounts.SetEmailConfirmed(ctx, accountID); err != nil {
		mappedErr := mapProviderError(err)
		e.metricInc(MetricConfirmationFailure)
		e.emitAudit(ctx, auditEventConfirmationFailure, false, accountID, "", mappedErr, func() map[string]string {
			return map[string]string{
				"reason": "provider_confirm_failed",
			}
		})
		return mappedErr
	}

	e.metricInc(MetricConfirmationSuccess)
	e.emitAudit(ctx, auditEventConfirmationConfirmed, true, accountID, "", nil, nil)
	return nil
}

func mapConfirmationStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrTokenNotFound):
		return ErrTokenInvalid
	case errors.Is(err, stores.ErrTokenUsed):
		return ErrTokenAlreadyUsed
	case errors.Is(err, stores.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, stores.ErrTokenPurposeMismatch):
		return ErrTokenPurposeMismatch
	case errors.Is(err, stores.ErrTokenAccountMismatch):
		return ErrTokenAccountMismatch
	case errors.Is(err, stores.ErrTokenSecretMismatch):
		return ErrTokenInvalid
	default:
		return ErrConfirmationUnavailable
	}
}

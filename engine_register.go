package goIdentity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/identium/goIdentity/internal"
	"github.com/identium/goIdentity/internal/stores"
	"github.com/identium/goIdentity/notify"
	"github.com/identium/goIdentity/password"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrInvalidInput, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return nil, ErrInvalidInput
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			e.metricInc(MetricRegisterFailure)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
				return map[string]string{
					"identifier": email,
					"reason":     "password_too_short",
				}
			})
			return nil, ErrPasswordPolicy
		}
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": email,
				"reason":     "hash_failed",
			}
		})
		return nil, err
	}

	account, err := e.accounts.CreateAccount(ctx, CreateAccountInput{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"identifier": email,
				}
			})
			return nil, ErrAccountExists
		}
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrAccountUnavailable, func() map[string]string {
			return map[string]string{
				"identifier": email,
				"reason":     "provider_create_failed",
			}
		})
		return nil, ErrAccountUnavailable
	}

	for _, claim := range req.Claims {
		if claim.Name == "" {
			continue
		}
		if err := e.accounts.AddClaim(ctx, account.AccountID, claim.Name, claim.Value); err != nil {
			e.metricInc(MetricRegisterFailure)
			e.emitAudit(ctx, auditEventRegisterFailure, false, account.AccountID, "", ErrAccountUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "claim_append_failed",
					"claim":  claim.Name,
				}
			})
			return nil, ErrAccountUnavailable
		}
	}

	result := &RegisterResult{
		AccountID: account.AccountID,
	}

	if e.config.Confirmation.Enabled {
		token, err := e.issueConfirmationToken(ctx, account.AccountID)
		if err != nil {
			e.metricInc(MetricRegisterFailure)
			e.emitAudit(ctx, auditEventRegisterFailure, false, account.AccountID, "", ErrConfirmationUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "confirmation_issue_failed",
				}
			})
			return nil, ErrConfirmationUnavailable
		}

		result.ConfirmationToken = token
		result.Delivered = e.deliverConfirmation(ctx, account, token)

		e.metricInc(MetricConfirmationIssued)
		e.emitAudit(ctx, auditEventConfirmationIssued, true, account.AccountID, "", nil, nil)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventAccountRegistered, true, account.AccountID, "", nil, func() map[string]string {
		return map[string]string{
			"identifier": email,
		}
	})

	return result, nil
}

// RequestEmailConfirmation issues a fresh confirmation token for the account
// behind email. The response shape is identical for unknown addresses so the
// operation cannot be used to probe which emails are registered. A token is
// returned (and delivered) only for unconfirmed accounts; already-confirmed
// accounts get an empty token.
func (e *Engine) RequestEmailConfirmation(ctx context.Context, email string) (string, error) {
	if e == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.Confirmation.Enabled {
		return "", ErrConfirmationDisabled
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", ErrInvalidInput
	}

	account, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Burn the same token work as the real path. Nothing is stored
			// and nothing is sent, so the decoy token can never confirm.
			decoy, derr := e.decoyConfirmationToken()
			if derr != nil {
				return "", ErrConfirmationUnavailable
			}
			return decoy, nil
		}
		return "", ErrAccountUnavailable
	}

	if account.EmailConfirmed {
		return "", nil
	}

	token, err := e.issueConfirmationToken(ctx, account.AccountID)
	if err != nil {
		return "", ErrConfirmationUnavailable
	}

	e.deliverConfirmation(ctx, account, token)

	e.metricInc(MetricConfirmationIssued)
	e.emitAudit(ctx, auditEventConfirmationIssued, true, account.AccountID, "", nil, nil)

	return token, nil
}

func (e *Engine) issueConfirmationToken(ctx context.Context, accountID string) (string, error) {
	tokenID, err := internal.NewTokenID()
	if err != nil {
		return "", err
	}

	secret, err := internal.NewTokenSecret()
	if err != nil {
		return "", err
	}

	ttl := e.config.Confirmation.TokenTTL
	record := &stores.TokenRecord{
		AccountID:  accountID,
		Purpose:    stores.PurposeEmailConfirmation,
		SecretHash: internal.HashTokenSecret(secret),
		ExpiresAt:  time.Now().Add(ttl).Unix(),
	}

	if err := e.confirmationStore.Save(ctx, tokenID.String(), record, ttl); err != nil {
		return "", err
	}

	return internal.EncodeConfirmationToken(tokenID.String(), secret)
}

func (e *Engine) decoyConfirmationToken() (string, error) {
	tokenID, err := internal.NewTokenID()
	if err != nil {
		return "", err
	}

	secret, err := internal.NewTokenSecret()
	if err != nil {
		return "", err
	}

	return internal.EncodeConfirmationToken(tokenID.String(), secret)
}

func (e *Engine) deliverConfirmation(ctx context.Context, account AccountRecord, token string) bool {
	err := e.notifier.Send(ctx, notify.Message{
		To:      account.Email,
		Subject: "Confirm your email",
		Body:    "Your email confirmation token: " + token,
	})
	if err == nil {
		return true
	}

	e.metricInc(MetricDeliveryFailure)
	e.emitAudit(ctx, auditEventDeliveryFailure, false, account.AccountID, "", err, func() map[string]string {
		return map[string]string{
			"reason": "confirmation_send_failed",
		}
	})
	return false
}

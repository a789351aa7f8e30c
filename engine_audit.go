package goIdentity

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/identium/goIdentity/internal/audit"
)

const (
	auditEventAccountRegistered     = internalaudit.EventAccountRegistered
	auditEventRegisterFailure       = internalaudit.EventRegisterFailure
	auditEventRegisterDuplicate     = internalaudit.EventRegisterDuplicate
	auditEventConfirmationIssued    = internalaudit.EventConfirmationIssued
	auditEventConfirmationConfirmed = internalaudit.EventConfirmationConfirmed
	auditEventConfirmationFailure   = internalaudit.EventConfirmationFailure
	auditEventConfirmationReplay    = internalaudit.EventConfirmationReplay
	auditEventLoginSuccess          = internalaudit.EventLoginSuccess
	auditEventLoginFailure          = internalaudit.EventLoginFailure
	auditEventLoginLockedOut        = internalaudit.EventLoginLockedOut
	auditEventTwoFactorRequired     = internalaudit.EventTwoFactorRequired
	auditEventTwoFactorSuccess      = internalaudit.EventTwoFactorSuccess
	auditEventTwoFactorFailure      = internalaudit.EventTwoFactorFailure
	auditEventLockoutTriggered      = internalaudit.EventLockoutTriggered
	auditEventDeliveryFailure       = internalaudit.EventDeliveryFailure
	auditEventLogoutSession         = internalaudit.EventLogoutSession
	auditEventLogoutAll             = internalaudit.EventLogoutAll
	auditEventTwoFactorEnabled      = internalaudit.EventTwoFactorEnabled
	auditEventTwoFactorDisabled     = internalaudit.EventTwoFactorDisabled
)

// AuditErrorCode defines a public type used by goIdentity APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	// AuditErrNone is an exported constant or variable used by the identity engine.
	AuditErrNone AuditErrorCode = ""
	// AuditErrUnauthorized is an exported constant or variable used by the identity engine.
	AuditErrUnauthorized AuditErrorCode = "unauthorized"
	// AuditErrInvalidInput is an exported constant or variable used by the identity engine.
	AuditErrInvalidInput AuditErrorCode = "invalid_input"
	// AuditErrInvalidCredentials is an exported constant or variable used by the identity engine.
	AuditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	// AuditErrPasswordPolicy is an exported constant or variable used by the identity engine.
	AuditErrPasswordPolicy AuditErrorCode = "password_policy"
	// AuditErrAccountExists is an exported constant or variable used by the identity engine.
	AuditErrAccountExists AuditErrorCode = "account_exists"
	// AuditErrAccountNotFound is an exported constant or variable used by the identity engine.
	AuditErrAccountNotFound AuditErrorCode = "account_not_found"
	// AuditErrAccountLocked is an exported constant or variable used by the identity engine.
	AuditErrAccountLocked AuditErrorCode = "account_locked"
	// AuditErrTokenInvalid is an exported constant or variable used by the identity engine.
	AuditErrTokenInvalid AuditErrorCode = "token_invalid"
	// AuditErrTokenExpired is an exported constant or variable used by the identity engine.
	AuditErrTokenExpired AuditErrorCode = "token_expired"
	// AuditErrTokenReplay is an exported constant or variable used by the identity engine.
	AuditErrTokenReplay AuditErrorCode = "token_replay"
	// AuditErrTwoFactorInvalid is an exported constant or variable used by the identity engine.
	AuditErrTwoFactorInvalid AuditErrorCode = "two_factor_invalid"
	// AuditErrDependency is an exported constant or variable used by the identity engine.
	AuditErrDependency AuditErrorCode = "dependency_failure"
	// AuditErrInternal is an exported constant or variable used by the identity engine.
	AuditErrInternal AuditErrorCode = "internal"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return AuditErrNone
	case errors.Is(err, ErrUnauthorized):
		return AuditErrUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return AuditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return AuditErrInvalidCredentials
	case errors.Is(err, ErrPasswordPolicy):
		return AuditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return AuditErrAccountExists
	case errors.Is(err, ErrAccountNotFound):
		return AuditErrAccountNotFound
	case errors.Is(err, ErrAccountLocked):
		return AuditErrAccountLocked
	case errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenPurposeMismatch),
		errors.Is(err, ErrTokenAccountMismatch):
		return AuditErrTokenInvalid
	case errors.Is(err, ErrTokenExpired):
		return AuditErrTokenExpired
	case errors.Is(err, ErrTokenAlreadyUsed):
		return AuditErrTokenReplay
	case errors.Is(err, ErrTwoFactorInvalid),
		errors.Is(err, ErrTwoFactorExpired),
		errors.Is(err, ErrTwoFactorAttemptsExceeded),
		errors.Is(err, ErrTwoFactorNotEnabled):
		return AuditErrTwoFactorInvalid
	case errors.Is(err, ErrAccountUnavailable),
		errors.Is(err, ErrConfirmationUnavailable),
		errors.Is(err, ErrTwoFactorUnavailable),
		errors.Is(err, ErrLockoutUnavailable),
		errors.Is(err, ErrSessionUnavailable):
		return AuditErrDependency
	default:
		return AuditErrInternal
	}
}

// emitAudit builds the event eagerly but hands delivery to the dispatcher.
// The metadata builder only runs when audit is enabled.
func (e *Engine) emitAudit(ctx context.Context, eventType AuditEventType, success bool, accountID string, sessionID string, err error, metadataBuilder func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}

	if err != nil {
		event.Error = string(auditErrorCode(err))
	}

	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}

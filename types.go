package goIdentity

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/identium/goIdentity/internal/audit"
	"github.com/identium/goIdentity/notify"
)

// Claim is a single name/value attribute attached to an account. Claims are
// append-only and ordered; duplicate names are allowed.
type Claim struct {
	Name  string
	Value string
}

// AccountRecord is the full account record returned by [AccountProvider].
// It carries the credential hash, confirmation state, and claims.
type AccountRecord struct {
	AccountID        string
	Name             string
	Email            string
	PasswordHash     string
	EmailConfirmed   bool
	TwoFactorEnabled bool
	Claims           []Claim
}

// CreateAccountInput is the input for [AccountProvider.CreateAccount].
type CreateAccountInput struct {
	Name         string
	Email        string
	PasswordHash string
}

// AccountProvider is the primary interface that callers must implement to
// integrate goIdentity with their account database. It covers account
// creation, lookup, claims, and confirmation state.
//
// CreateAccount must return [ErrProviderDuplicateEmail] (directly or
// wrapped) when the email is already registered. SetEmailConfirmed must be
// idempotent: confirming an already-confirmed account succeeds without
// change.
type AccountProvider interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (AccountRecord, error)
	GetAccountByEmail(ctx context.Context, email string) (AccountRecord, error)
	GetAccountByID(ctx context.Context, accountID string) (AccountRecord, error)
	AddClaim(ctx context.Context, accountID, name, value string) error
	SetEmailConfirmed(ctx context.Context, accountID string) error
	SetTwoFactorEnabled(ctx context.Context, accountID string, enabled bool) error
}

// SignInOutcome is the tagged result of a sign-in attempt. Exactly one
// outcome applies per attempt.
type SignInOutcome uint8

const (
	// SignInRejected is an exported constant or variable used by the identity engine.
	SignInRejected SignInOutcome = iota
	// SignInAuthenticated is an exported constant or variable used by the identity engine.
	SignInAuthenticated
	// SignInTwoFactorRequired is an exported constant or variable used by the identity engine.
	SignInTwoFactorRequired
	// SignInLockedOut is an exported constant or variable used by the identity engine.
	SignInLockedOut
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o SignInOutcome) String() string {
	switch o {
	case SignInAuthenticated:
		return "authenticated"
	case SignInTwoFactorRequired:
		return "two_factor_required"
	case SignInLockedOut:
		return "locked_out"
	default:
		return "rejected"
	}
}

// SignInResult is returned by [Engine.Login] and [Engine.CompleteTwoFactor].
// Outcome is always set; the token fields are populated only when Outcome is
// [SignInAuthenticated], and RetryAfter only when Outcome is
// [SignInLockedOut].
type SignInResult struct {
	Outcome   SignInOutcome
	AccountID string

	AccessToken string
	SessionID   string

	TwoFactorDelivered bool
	RetryAfter         time.Duration
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Claims   []Claim
}

// RegisterResult is returned by [Engine.Register]. ConfirmationToken is set
// only when email confirmation is enabled; Delivered reports whether the
// notifier accepted the confirmation message.
type RegisterResult struct {
	AccountID         string
	ConfirmationToken string
	Delivered         bool
}

// SessionInfo is returned by [Engine.ValidateSession].
type SessionInfo struct {
	AccountID string
	Email     string
	SessionID string
}

// Notifier delivers confirmation tokens and two-factor codes.
type Notifier = notify.Notifier

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditEventType names an identity flow decision; the full vocabulary is
// declared next to [AuditEvent].
type AuditEventType = internalaudit.EventType

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

package goIdentity

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the identity engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is an exported constant or variable used by the identity engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is an exported constant or variable used by the identity engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordPolicy is an exported constant or variable used by the identity engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrAccountExists is an exported constant or variable used by the identity engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is an exported constant or variable used by the identity engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountLocked is an exported constant or variable used by the identity engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountUnavailable is an exported constant or variable used by the identity engine.
	ErrAccountUnavailable = errors.New("account backend unavailable")
	// ErrConfirmationDisabled is an exported constant or variable used by the identity engine.
	ErrConfirmationDisabled = errors.New("email confirmation disabled")
	// ErrConfirmationUnavailable is an exported constant or variable used by the identity engine.
	ErrConfirmationUnavailable = errors.New("email confirmation backend unavailable")
	// ErrTokenMalformed is an exported constant or variable used by the identity engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid is an exported constant or variable used by the identity engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the identity engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyUsed is an exported constant or variable used by the identity engine.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrTokenPurposeMismatch is an exported constant or variable used by the identity engine.
	ErrTokenPurposeMismatch = errors.New("token purpose mismatch")
	// ErrTokenAccountMismatch is an exported constant or variable used by the identity engine.
	ErrTokenAccountMismatch = errors.New("token account mismatch")
	// ErrTwoFactorNotEnabled is an exported constant or variable used by the identity engine.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrTwoFactorInvalid is an exported constant or variable used by the identity engine.
	ErrTwoFactorInvalid = errors.New("two-factor code invalid")
	// ErrTwoFactorExpired is an exported constant or variable used by the identity engine.
	ErrTwoFactorExpired = errors.New("two-factor challenge expired")
	// ErrTwoFactorAttemptsExceeded is an exported constant or variable used by the identity engine.
	ErrTwoFactorAttemptsExceeded = errors.New("two-factor attempts exceeded")
	// ErrTwoFactorUnavailable is an exported constant or variable used by the identity engine.
	ErrTwoFactorUnavailable = errors.New("two-factor backend unavailable")
	// ErrLockoutUnavailable is an exported constant or variable used by the identity engine.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
	// ErrSessionNotFound is an exported constant or variable used by the identity engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionUnavailable is an exported constant or variable used by the identity engine.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrSessionCreationFailed is an exported constant or variable used by the identity engine.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrEngineNotReady is an exported constant or variable used by the identity engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrProviderDuplicateEmail is an exported constant or variable used by the identity engine.
	ErrProviderDuplicateEmail = errors.New("provider duplicate email")
)

package session

// Session defines a public type used by goIdentity APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SessionID string
	AccountID string
	Email     string

	RememberMe bool

	CreatedAt int64
	ExpiresAt int64
}

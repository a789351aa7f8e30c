// Package middleware exposes HTTP middleware adapters built on top of
// goIdentity.Engine session validation.
//
// # Guards
//
//   - [RequireSession] — JWT parse plus session store verification.
//
// The guard reads the Authorization header, calls Engine.ValidateSession, and injects
// the validated [goIdentity.SessionInfo] into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.ValidateSession.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.ValidateSession.
package middleware

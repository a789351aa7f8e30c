// Package goIdentity provides an account-identity engine with argon2id
// credentials, Redis-backed lockout and sessions, single-use confirmation
// tokens, and email-code two-factor sign-in.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goIdentity is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (SignInResult, RegisterResult, MetricsSnapshot, etc.). All internal coordination —
// token records, challenge consumption, lockout counters, audit dispatch — lives under
// internal/ and is never exported.
//
// Account storage is the caller's: every persistent account read or write goes through
// the [AccountProvider] interface, and the providers/ tree ships a PostgreSQL
// implementation.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Store plaintext passwords, token secrets, or two-factor codes anywhere. Only
//     argon2id or SHA-256 digests are persisted.
//   - Import any sub-package that re-imports goIdentity (no import cycles).
//
// # Sign-in contract
//
// Login and CompleteTwoFactor separate decisions from failures: a rejected credential,
// an active lockout, or a pending two-factor challenge is a nil-error result with the
// matching [SignInOutcome]. A non-nil error always means a dependency or input problem,
// never "wrong password".
package goIdentity

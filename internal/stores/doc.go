// Package stores provides Redis-backed, short-lived record stores for
// identity flows: single-use confirmation tokens and two-factor login
// challenges.
//
// # Design
//
// Each store persists a versioned, binary-encoded record in Redis with a TTL.
// Consume operations use WATCH/MULTI optimistic transactions with automatic
// retry on contention, so a record is consumed at most once under concurrent
// callers. Confirmation tokens are tombstoned on consume (consumed flag
// flipped in place, TTL preserved) so a replay is distinguishable from an
// unknown token; challenges enforce attempt limits and are deleted on match.
// Secret comparisons use constant-time compare.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient token
// and challenge records. It does NOT generate tokens/OTPs, enforce lockout,
// or make authentication decisions — those responsibilities belong to the
// engine flows.
//
// # What this package must NOT do
//
//   - Import goIdentity or any sibling internal package.
//   - Log or expose plaintext secrets.
//   - Use non-constant-time comparisons for secret matching.
package stores

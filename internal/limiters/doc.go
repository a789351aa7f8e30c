// Package limiters provides the Redis-backed lockout tracker for failed
// sign-in accounting.
//
// # Limiters
//
//   - [Lockout] — per-account failure counter plus fixed-window lock. Reaching
//     the threshold locks the account and resets the counter; a successful
//     sign-in resets the counter but never clears an active lock.
//
// # Architecture boundaries
//
// The tracker owns its own Redis key namespace and error types. Policy
// thresholds come from [LockoutConfig] supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goIdentity or any sibling internal package.
//   - Make policy decisions beyond counting — engine flows decide consequences.
package limiters

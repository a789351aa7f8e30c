// Package internal contains helper utilities that are intentionally private to
// goIdentity: token ID and secret generation, the confirmation token codec,
// and one-time-code generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - limiters — the account lockout tracker
//   - stores — single-use token and two-factor challenge stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public goIdentity API.
//   - Be imported by any package outside the goIdentity module.
package internal

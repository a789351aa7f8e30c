// Package notify defines the outbound message contract used by the identity
// engine to deliver confirmation tokens and two-factor codes.
//
// # Implementations
//
//   - [SMTPNotifier] — plain-auth SMTP relay, configured explicitly via [SMTPConfig].
//   - [Func] — adapter for test capture and custom transports.
//   - [NoOp] — discards messages.
//
// # Architecture boundaries
//
// The engine composes message bodies and decides when to send; this package
// only moves them. Delivery failures are reported to the caller and are
// never fatal to the flow that triggered them.
//
// # What this package must NOT do
//
//   - Import goIdentity or any internal package.
//   - Retry or queue messages — callers own retry policy.
//   - Log message bodies (they contain secrets).
package notify

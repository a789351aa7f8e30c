// Package postgres implements the goIdentity account provider on PostgreSQL
// through a pgx connection pool.
//
// # Components
//
//   - [Provider] — implements [goIdentity.AccountProvider]. Duplicate email
//     inserts surface as [goIdentity.ErrProviderDuplicateEmail]; missing
//     accounts as [goIdentity.ErrAccountNotFound].
//   - [Migrate] — applies the embedded goose migrations (accounts and
//     account_claims tables).
//
// # What this package must NOT do
//
//   - Hash passwords or interpret credential material (the engine owns that).
//   - Cache account records. Every read hits the pool so confirmation and
//     two-factor state are never stale.
package postgres

// Package goaccount provides an account lifecycle engine that reconciles three
// identity surfaces (a remote identity provider, a Redis-backed account
// directory, and a local credential cache) behind a single state machine.
//
// The package is designed for embedding in a client or gateway process: Engine
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build], and every state-changing operation is single-flight.
//
// # Architecture boundaries
//
// goaccount is the public surface. It exposes [Engine], [Builder], [Config],
// the [IdentityProvider], [CredentialStore], and [BlobStore] contracts, and
// value types (Account, LoginResult, MetricsSnapshot). Storage implementations
// live in subpackages (directory, credstore, blob, idp) and never import this
// package except idp, which implements [IdentityProvider].
//
// # What this package must NOT do
//
//   - Expose Redis clients or store internals in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Surface partial aggregate state: reads return copies, and a failed
//     operation leaves the cached account exactly as it was.
//
// # Consistency contract
//
// Remote identity, directory record, and local cache are reconciled in a fixed
// order per flow; the first failure stops the flow and completed steps are not
// rolled back. Retrying the same operation drives the flow forward because
// every directory and blob write is an idempotent upsert or delete.
package goaccount

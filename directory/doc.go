// Package directory implements the Redis-backed account directory: one
// record keyspace holding per-account profile documents and one index
// keyspace enforcing global username uniqueness.
//
// # Uniqueness model
//
// Usernames are case-insensitive for uniqueness and lookup but preserve the
// caller's casing for display. A claim is a conditional create on the index
// key, executed server-side as a Lua script, so two concurrent claims of the
// same name can never both succeed.
//
// # What this package must NOT do
//
//   - Validate username or email syntax. Callers own input policy.
//   - Talk to the identity provider or any other remote system.
package directory

// Package idp is a Redis-backed reference implementation of the
// goaccount.IdentityProvider interface.
//
// User records live in Redis keyed by a generated id, with a lowercased email
// index enforcing one account per address. Passwords are stored as argon2id
// hashes through the password package, sign-ins mint JWT identity tokens
// through the token package, and password resets are single-use tokens with a
// TTL.
//
// The provider tracks one current identity per instance, mirroring a client
// session. Subscribers registered through Subscribe are notified whenever the
// current identity changes.
package idp

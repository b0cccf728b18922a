// Package credstore provides local persistence for the engine's cached
// account snapshot.
//
// Three stores are provided:
//
//   - [Memory]: process-local, lost on restart. The default.
//   - [File]: a single file written atomically (temp file + rename).
//   - [EncryptedFile]: a [File] whose contents are sealed with AES-GCM under
//     a key derived from a passphrase with Argon2id.
//
// All stores treat the payload as opaque bytes; serialization is owned by
// the caller.
//
// # What this package must NOT do
//
//   - Interpret or validate the stored payload.
//   - Import any other goaccount package.
package credstore

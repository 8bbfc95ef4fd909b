// Package password hashes and verifies account passwords.
//
// New hashes are always bcrypt at the configured work factor (12 by default). Stored
// argon2id PHC strings from earlier deployments are still accepted by [Verifier.Verify]
// and reported by [Verifier.NeedsRehash] so the caller can upgrade them on the next
// successful login.
//
// Verification never panics and never errors: an empty, malformed or foreign hash is
// simply a mismatch, which lets callers treat "no password set" and "wrong password"
// identically.
package password

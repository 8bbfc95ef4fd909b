// Package session owns the user record and its list of live sessions.
//
// # Stores
//
// [Store] is implemented by [MemoryStore] (tests, single process), [RedisStore]
// (hash per user plus a sorted set of sessions), and the mongostore and pgstore
// sub-packages. All of them make Append, Remove, Replace and Prune a single atomic
// write per user, so two callers racing to rotate the same session cannot both win.
//
// # Architecture boundaries
//
// This package does NOT interpret tokens, hash passwords, or decide when a session
// rotates. Those responsibilities belong to the jwt, password and refresh packages
// and to the Engine.
//
// # What this package must NOT do
//
//   - Import ffauth, jwt, or password (no upward imports).
//   - Store plaintext secrets or tokens.
package session

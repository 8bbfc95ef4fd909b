// Package ffauth manages the session and credential-token lifecycle of a user
// account: register, login, refresh, logout and authorize.
//
// Access tokens are short-lived HS256 JWTs checked without any store lookup.
// Refresh tokens are JWTs signed with a second secret whose jti names a session
// in the user's session list. A refresh token is accepted only while its
// session is present; logout removes the session, and rotation replaces it
// atomically so that only one concurrent refresh can win.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// ffauth is the public surface. It exposes [Engine], [Builder], [Config], the
// error taxonomy and value types ([AuthResult], [Principal], [PublicUser]).
// Flow orchestration and audit dispatch live under internal/; persistence is
// behind [session.Store].
//
// # What this package must NOT do
//
//   - Return internal failure detail to callers. Every failure maps onto one of
//     ErrAuthRequired, ErrAuthInvalid, ErrConflict, ErrInvalidInput or
//     ErrUnavailable.
//   - Log or audit tokens, passwords or password hashes.
//   - Read the environment; configuration is injected through [Builder].
package ffauth

// Package flows contains the orchestration for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, RunLogout,
// RunAuthorize) accepts a typed dependency struct and returns a result that
// carries either the issued tokens or a failure kind. The root package maps
// failure kinds to public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, token manager and
// password verifier. They do NOT own any of these resources; ownership stays
// with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root ffauth package (to avoid import cycles).
//   - Log, count or audit; results are reported back to the caller.
package flows

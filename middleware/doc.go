// Package middleware exposes net/http adapters around Engine.Authorize.
//
// [Guard] reads the access token from the Authorization header (falling back
// to the ff_access cookie), calls Engine.Authorize, and injects the resulting
// principal into the request context, where handlers read it with
// ffauth.PrincipalFromContext.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the session store.
//   - Expose failure detail beyond the public error code and message.
package middleware

// Package refresh decides whether a refresh request rotates its session.
//
// # Rotation rule
//
// A refresh token whose remaining lifetime is below the configured threshold is
// rotated: its session is replaced and a new refresh token is issued. Otherwise the
// caller echoes the presented token back unchanged.
//
// # What this package must NOT do
//
//   - Access any store or perform I/O.
//   - Verify tokens; callers pass the already-verified expiry.
package refresh

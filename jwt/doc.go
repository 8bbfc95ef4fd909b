// Package jwt signs and verifies the two token kinds issued by ffauth: short-lived access
// tokens and session-bound refresh tokens.
//
// Each kind is signed with its own HMAC secret and carries a "typ" claim, so a token of
// one kind never verifies as the other and a leaked access secret cannot forge refresh
// tokens. Every verification failure is reported as [ErrTokenInvalid]; the underlying
// cause is only reachable through [Cause] for logging.
//
// # What this package must NOT do
//
//   - Touch any session store or perform I/O.
//   - Let callers branch on why a token was rejected.
package jwt

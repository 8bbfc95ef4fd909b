// Package httpapi exposes the ffauth engine over HTTP with gin.
//
// Routes:
//
//	POST /auth/register  {name,email,password}  -> 201 {user, accessToken, refreshToken}
//	POST /auth/login     {email,password}       -> 200 {user, accessToken, refreshToken}
//	POST /auth/refresh   {refreshToken}         -> 200 {user, accessToken, refreshToken}
//	POST /auth/logout    {refreshToken}         -> 200 {ok: true}
//	GET  /auth/me                               -> 200 {user}
//	GET  /healthz                               -> 200 {ok: true}
//	GET  /metrics                               -> Prometheus exposition (optional)
//
// Errors use the envelope {"ok": false, "code": "...", "message": "..."}.
package httpapi

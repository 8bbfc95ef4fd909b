package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/ffauth"
)

// AccessCookieName is the cookie that carries the access token when no
// Authorization header is present.
const AccessCookieName = "ff_access"

// ErrorBody is the JSON error envelope returned to clients.
type ErrorBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorBody builds the envelope for err. Only the fixed public message is
// exposed.
func NewErrorBody(err error) ErrorBody {
	return ErrorBody{
		OK:      false,
		Code:    ffauth.ErrorCode(err),
		Message: ffauth.ErrorMessage(err),
	}
}

// WriteError writes err as a JSON envelope with its mapped status code.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ffauth.ErrorStatus(err))
	_ = json.NewEncoder(w).Encode(NewErrorBody(err))
}

// Guard authorizes every request with engine and stores the resulting
// principal in the request context. Rejected requests get a 401 envelope.
func Guard(engine *ffauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, ffauth.ErrAuthRequired)
				return
			}

			p, err := engine.Authorize(r.Context(), TokenFromRequest(r))
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ffauth.WithPrincipal(r.Context(), p)))
		})
	}
}

// TokenFromRequest returns the bearer token from the Authorization header, or
// the access cookie when there is no usable Bearer header (absent, or another
// scheme such as Basic). It returns "" when neither carries a token.
func TokenFromRequest(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

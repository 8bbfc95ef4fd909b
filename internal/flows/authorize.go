package flows

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/ffauth/jwt"
)

var errMissingToken = errors.New("missing access token")

// AuthorizeFailureKind classifies authorize flow failures.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureMissing
	AuthorizeFailureDecode
)

// String returns the reason code used in logs.
func (k AuthorizeFailureKind) String() string {
	switch k {
	case AuthorizeFailureNone:
		return "none"
	case AuthorizeFailureMissing:
		return "missing_token"
	case AuthorizeFailureDecode:
		return "invalid_token"
	default:
		return "unknown"
	}
}

// AuthorizeDeps captures authorize flow dependencies. Authorize is stateless
// and never touches the session store.
type AuthorizeDeps struct {
	VerifyAccess func(string) (*jwt.AccessClaims, error)
}

type AuthorizeResult struct {
	Failure   AuthorizeFailureKind
	Err       error
	UserID    string
	ExpiresAt time.Time
}

// RunAuthorize verifies an access token and returns the principal it names.
func RunAuthorize(accessToken string, deps AuthorizeDeps) AuthorizeResult {
	if strings.TrimSpace(accessToken) == "" {
		return AuthorizeResult{Failure: AuthorizeFailureMissing, Err: errMissingToken}
	}
	claims, err := deps.VerifyAccess(accessToken)
	if err != nil {
		return AuthorizeResult{Failure: AuthorizeFailureDecode, Err: err}
	}
	return AuthorizeResult{
		UserID:    claims.UserID(),
		ExpiresAt: claims.Expiry(),
	}
}

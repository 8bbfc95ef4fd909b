package flows

import (
	"context"

	"github.com/MrEthical07/ffauth/jwt"
)

// LogoutFailureKind classifies logout outcomes. Logout never fails for the
// caller; the kind only feeds logs and audit.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureDecode
	LogoutFailureRemove
)

// String returns the reason code used in logs and audit metadata.
func (k LogoutFailureKind) String() string {
	switch k {
	case LogoutFailureNone:
		return "none"
	case LogoutFailureDecode:
		return "invalid_token"
	case LogoutFailureRemove:
		return "remove_failed"
	default:
		return "unknown"
	}
}

type LogoutStore interface {
	Remove(ctx context.Context, userID, tokenID string) (bool, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyRefresh func(string) (*jwt.RefreshClaims, error)
	Store         LogoutStore
}

type LogoutResult struct {
	Failure   LogoutFailureKind
	Err       error
	UserID    string
	SessionID string
	// Removed is false when the session was already gone.
	Removed bool
}

// RunLogout removes the session a refresh token is bound to. Removing an
// absent session is a no-op, so repeated logouts are harmless.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := verifyRefresh(deps.VerifyRefresh, refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureDecode, Err: err}
	}

	result := LogoutResult{
		UserID:    claims.UserID(),
		SessionID: claims.SessionID(),
	}
	removed, err := deps.Store.Remove(ctx, result.UserID, result.SessionID)
	if err != nil {
		result.Failure = LogoutFailureRemove
		result.Err = err
		return result
	}
	result.Removed = removed
	return result
}

package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/refresh"
	"github.com/MrEthical07/ffauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureLookup
	RefreshFailureUserMissing
	RefreshFailureSessionRevoked
	RefreshFailureNewSession
	RefreshFailureReplaceLost
	RefreshFailureReplace
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
)

// String returns the reason code used in logs and audit metadata.
func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureDecode:
		return "invalid_token"
	case RefreshFailureLookup:
		return "lookup_failed"
	case RefreshFailureUserMissing:
		return "user_not_found"
	case RefreshFailureSessionRevoked:
		return "session_revoked"
	case RefreshFailureNewSession:
		return "session_id_failed"
	case RefreshFailureReplaceLost:
		return "rotation_race_lost"
	case RefreshFailureReplace:
		return "replace_failed"
	case RefreshFailureIssueAccess:
		return "issue_access_failed"
	case RefreshFailureIssueRefresh:
		return "issue_refresh_failed"
	default:
		return "unknown"
	}
}

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	SessionID    string
	NewSessionID string
	User         *session.User
	Rotated      bool
	Remaining    time.Duration
	AccessToken  string
	RefreshToken string
}

// RefreshStore is the store surface the refresh flow needs.
type RefreshStore interface {
	SessionLookup
	Replace(ctx context.Context, userID, oldTokenID string, next session.Session) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefresh func(string) (*jwt.RefreshClaims, error)
	IssueAccess   func(userID string) (string, error)
	IssueRefresh  func(userID, sessionID string) (string, error)
	Decide        func(expiresAt, now time.Time) refresh.Decision
	Now           func() time.Time
	NewSession    func(time.Time) (session.Session, error)
	Store         RefreshStore
}

// RunRefresh verifies a refresh token, checks that its session is still
// active, and either echoes the token or rotates the session when it is close
// to expiry.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := verifyRefresh(deps.VerifyRefresh, refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	userID := claims.UserID()
	sessionID := claims.SessionID()

	user, check, err := CheckSession(ctx, deps.Store, userID, sessionID)
	switch check {
	case SessionCheckOK:
	case SessionCheckUserMissing:
		return RefreshResult{Failure: RefreshFailureUserMissing, Err: err, UserID: userID, SessionID: sessionID}
	case SessionCheckRevoked:
		return RefreshResult{Failure: RefreshFailureSessionRevoked, Err: err, UserID: userID, SessionID: sessionID}
	default:
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, UserID: userID, SessionID: sessionID}
	}

	now := deps.Now()
	decision := deps.Decide(claims.Expiry(), now)

	result := RefreshResult{
		UserID:    userID,
		SessionID: sessionID,
		User:      user,
		Remaining: decision.Remaining,
	}

	refreshOut := refreshToken
	if decision.Rotate {
		next, err := deps.NewSession(now)
		if err != nil {
			result.Failure = RefreshFailureNewSession
			result.Err = err
			return result
		}
		// Signed before Replace so a signing failure leaves the old session usable.
		rotated, err := deps.IssueRefresh(userID, next.TokenID)
		if err != nil {
			result.Failure = RefreshFailureIssueRefresh
			result.Err = err
			return result
		}
		if err := deps.Store.Replace(ctx, userID, sessionID, next); err != nil {
			result.Err = err
			if errors.Is(err, session.ErrSessionNotFound) {
				result.Failure = RefreshFailureReplaceLost
			} else {
				result.Failure = RefreshFailureReplace
			}
			return result
		}
		result.Rotated = true
		result.NewSessionID = next.TokenID
		refreshOut = rotated
	}

	access, err := deps.IssueAccess(userID)
	if err != nil {
		result.Failure = RefreshFailureIssueAccess
		result.Err = err
		return result
	}

	result.AccessToken = access
	result.RefreshToken = refreshOut
	return result
}

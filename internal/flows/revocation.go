package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/ffauth/internal"
	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/session"
)

// SessionCheck is the outcome of a revocation check.
type SessionCheck int

const (
	SessionCheckOK SessionCheck = iota
	SessionCheckUserMissing
	SessionCheckRevoked
	SessionCheckUnavailable
)

// SessionLookup is the store surface the revocation gate needs.
type SessionLookup interface {
	GetUserByID(ctx context.Context, id string) (*session.User, error)
	Contains(ctx context.Context, userID, tokenID string) (bool, error)
}

// CheckSession reports whether tokenID is still an active session of userID.
// A verified token whose session is gone has been revoked by logout or
// superseded by rotation. The user record is fetched as well because refresh
// returns the public profile alongside the tokens.
func CheckSession(ctx context.Context, lookup SessionLookup, userID, tokenID string) (*session.User, SessionCheck, error) {
	user, err := lookup.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			return nil, SessionCheckUserMissing, err
		}
		return nil, SessionCheckUnavailable, err
	}

	active, err := lookup.Contains(ctx, userID, tokenID)
	if err != nil {
		return nil, SessionCheckUnavailable, err
	}
	if !active {
		return user, SessionCheckRevoked, session.ErrSessionNotFound
	}
	return user, SessionCheckOK, nil
}

// verifyRefresh checks a refresh token and rejects it unless its jti has the
// shape of an id minted by session.NewTokenID. Tampered ids never reach the
// store and fail exactly like any other invalid token.
func verifyRefresh(verify func(string) (*jwt.RefreshClaims, error), token string) (*jwt.RefreshClaims, error) {
	claims, err := verify(token)
	if err != nil {
		return nil, err
	}
	if _, err := internal.ParseSessionID(claims.SessionID()); err != nil {
		return nil, fmt.Errorf("%w: jti: %v", jwt.ErrTokenInvalid, err)
	}
	return claims, nil
}

package session

import (
	"time"

	"github.com/MrEthical07/ffauth/internal"
)

// Session is one live refresh-token lineage of a user. TokenID doubles as the jti
// of the refresh token bound to it.
type Session struct {
	TokenID   string
	CreatedAt time.Time
}

// User is the persisted account record. Sessions are kept in creation order.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Sessions     []Session
	CreatedAt    time.Time
}

// NewTokenID returns a fresh 16-byte random id, base64url encoded without padding.
func NewTokenID() (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// NewSession returns a session with a fresh TokenID created at now.
func NewSession(now time.Time) (Session, error) {
	id, err := NewTokenID()
	if err != nil {
		return Session{}, err
	}
	return Session{TokenID: id, CreatedAt: now.UTC()}, nil
}

// HasSession reports whether tokenID is in the user's session list.
func (u *User) HasSession(tokenID string) bool {
	if u == nil || tokenID == "" {
		return false
	}
	for _, s := range u.Sessions {
		if s.TokenID == tokenID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Sessions = append([]Session(nil), u.Sessions...)
	return &out
}

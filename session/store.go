package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned by CreateUser when another account owns the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrDuplicateSession is returned by Append and Replace when the new TokenID is
	// already present in the user's list.
	ErrDuplicateSession = errors.New("duplicate session token id")

	// ErrSessionNotFound is returned by Replace when the old TokenID is absent,
	// which is how the loser of a concurrent rotation observes the race.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreUnavailable wraps backend failures (network, driver, decode).
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Store persists users and their session lists. Every method is linearizable per
// user; Append, Remove, Replace and Prune are single atomic writes.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	Append(ctx context.Context, userID string, s Session) error
	// Remove reports whether a session was actually deleted.
	Remove(ctx context.Context, userID, tokenID string) (bool, error)
	Replace(ctx context.Context, userID, oldTokenID string, next Session) error
	Contains(ctx context.Context, userID, tokenID string) (bool, error)
	Prune(ctx context.Context, userID string, createdBefore time.Time) (int, error)

	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/ffauth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureLookup
	LoginFailureUnknownUser
	LoginFailureNoPassword
	LoginFailureMismatch
	LoginFailureNewSession
	LoginFailureAppend
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

// String returns the reason code used in logs and audit metadata.
func (k LoginFailureKind) String() string {
	switch k {
	case LoginFailureNone:
		return "none"
	case LoginFailureLookup:
		return "lookup_failed"
	case LoginFailureUnknownUser:
		return "unknown_user"
	case LoginFailureNoPassword:
		return "no_password"
	case LoginFailureMismatch:
		return "password_mismatch"
	case LoginFailureNewSession:
		return "session_id_failed"
	case LoginFailureAppend:
		return "append_failed"
	case LoginFailureIssueAccess:
		return "issue_access_failed"
	case LoginFailureIssueRefresh:
		return "issue_refresh_failed"
	default:
		return "unknown"
	}
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       string
	SessionID    string
	User         *session.User
	Pruned       int
	Rehashed     bool
	AccessToken  string
	RefreshToken string
}

// LoginStore is the store surface the login flow needs.
type LoginStore interface {
	GetUserByEmail(ctx context.Context, email string) (*session.User, error)
	Append(ctx context.Context, userID string, s session.Session) error
	Remove(ctx context.Context, userID, tokenID string) (bool, error)
	Prune(ctx context.Context, userID string, createdBefore time.Time) (int, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	UpgradeOnLogin bool
	PruneOnLogin   bool
	PruneAge       time.Duration

	Verify      func(password, hash string) bool
	Burn        func(password string)
	NeedsRehash func(hash string) bool
	Hash        func(password string) (string, error)

	Now          func() time.Time
	NewSession   func(time.Time) (session.Session, error)
	IssueAccess  func(userID string) (string, error)
	IssueRefresh func(userID, sessionID string) (string, error)

	// Warn reports best-effort steps that failed without failing the login.
	Warn  func(msg string, err error)
	Store LoginStore
}

// RunLogin verifies credentials and opens a new session. Unknown users, users
// without a password and wrong passwords all cost one password comparison.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if email == "" || password == "" {
		deps.Burn(password)
		return LoginResult{Failure: LoginFailureUnknownUser, Err: session.ErrUserNotFound}
	}

	user, err := deps.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			deps.Burn(password)
			return LoginResult{Failure: LoginFailureUnknownUser, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	if user.PasswordHash == "" {
		deps.Burn(password)
		return LoginResult{Failure: LoginFailureNoPassword, Err: errors.New("account has no password"), UserID: user.ID}
	}
	if !deps.Verify(password, user.PasswordHash) {
		return LoginResult{Failure: LoginFailureMismatch, Err: errors.New("password mismatch"), UserID: user.ID}
	}

	result := LoginResult{UserID: user.ID, User: user}

	if deps.UpgradeOnLogin && deps.NeedsRehash != nil && deps.NeedsRehash(user.PasswordHash) {
		if upgraded, err := deps.Hash(password); err != nil {
			deps.warn("password rehash failed", err)
		} else if err := deps.Store.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
			deps.warn("password hash update failed", err)
		} else {
			user.PasswordHash = upgraded
			result.Rehashed = true
		}
	}

	now := deps.Now()
	if deps.PruneOnLogin && deps.PruneAge > 0 {
		n, err := deps.Store.Prune(ctx, user.ID, now.Add(-deps.PruneAge))
		if err != nil {
			deps.warn("session prune failed", err)
		}
		result.Pruned = n
	}

	sess, err := deps.NewSession(now)
	if err != nil {
		result.Failure = LoginFailureNewSession
		result.Err = err
		return result
	}
	result.SessionID = sess.TokenID
	if err := deps.Store.Append(ctx, user.ID, sess); err != nil {
		result.Failure = LoginFailureAppend
		result.Err = err
		return result
	}

	access, refreshToken, kind, err := issuePair(deps.IssueAccess, deps.IssueRefresh, user.ID, sess.TokenID)
	if err != nil {
		if _, rmErr := deps.Store.Remove(ctx, user.ID, sess.TokenID); rmErr != nil {
			deps.warn("orphan session cleanup failed", rmErr)
		}
		result.Err = err
		if kind == issueFailedAccess {
			result.Failure = LoginFailureIssueAccess
		} else {
			result.Failure = LoginFailureIssueRefresh
		}
		return result
	}

	result.AccessToken = access
	result.RefreshToken = refreshToken
	return result
}

func (d LoginDeps) warn(msg string, err error) {
	if d.Warn != nil {
		d.Warn(msg, err)
	}
}

type issueFailure int

const (
	issueFailedNone issueFailure = iota
	issueFailedAccess
	issueFailedRefresh
)

func issuePair(
	issueAccess func(string) (string, error),
	issueRefresh func(string, string) (string, error),
	userID, sessionID string,
) (string, string, issueFailure, error) {
	access, err := issueAccess(userID)
	if err != nil {
		return "", "", issueFailedAccess, err
	}
	refreshToken, err := issueRefresh(userID, sessionID)
	if err != nil {
		return "", "", issueFailedRefresh, err
	}
	return access, refreshToken, issueFailedNone, nil
}

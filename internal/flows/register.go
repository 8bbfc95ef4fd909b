package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/ffauth/password"
	"github.com/MrEthical07/ffauth/session"
)

var (
	ErrNameRequired   = errors.New("name is required")
	ErrEmailInvalid   = errors.New("email is invalid")
	ErrPasswordLength = errors.New("password length out of range")
)

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureEmailTaken
	RegisterFailureLookup
	RegisterFailureHash
	RegisterFailureCreate
	RegisterFailureNewSession
	RegisterFailureAppend
	RegisterFailureIssueAccess
	RegisterFailureIssueRefresh
)

// String returns the reason code used in logs and audit metadata.
func (k RegisterFailureKind) String() string {
	switch k {
	case RegisterFailureNone:
		return "none"
	case RegisterFailureInvalid:
		return "invalid_input"
	case RegisterFailureEmailTaken:
		return "email_taken"
	case RegisterFailureLookup:
		return "lookup_failed"
	case RegisterFailureHash:
		return "hash_failed"
	case RegisterFailureCreate:
		return "create_failed"
	case RegisterFailureNewSession:
		return "session_id_failed"
	case RegisterFailureAppend:
		return "append_failed"
	case RegisterFailureIssueAccess:
		return "issue_access_failed"
	case RegisterFailureIssueRefresh:
		return "issue_refresh_failed"
	default:
		return "unknown"
	}
}

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult carries either the created user and token pair or failure metadata.
type RegisterResult struct {
	Failure      RegisterFailureKind
	Err          error
	UserID       string
	SessionID    string
	User         *session.User
	AccessToken  string
	RefreshToken string
}

// RegisterStore is the store surface the register flow needs.
type RegisterStore interface {
	CreateUser(ctx context.Context, u *session.User) error
	GetUserByEmail(ctx context.Context, email string) (*session.User, error)
	Append(ctx context.Context, userID string, s session.Session) error
	Remove(ctx context.Context, userID, tokenID string) (bool, error)
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	MinPasswordLength int

	// ValidateEmail returns a non-nil error for syntactically invalid addresses.
	ValidateEmail func(string) error
	Hash          func(password string) (string, error)
	NewUserID     func() string

	Now          func() time.Time
	NewSession   func(time.Time) (session.Session, error)
	IssueAccess  func(userID string) (string, error)
	IssueRefresh func(userID, sessionID string) (string, error)

	Warn  func(msg string, err error)
	Store RegisterStore
}

// ValidateRegister normalizes req and checks it. Name and email are trimmed;
// email case is preserved.
func ValidateRegister(req RegisterRequest, minPasswordLength int, validateEmail func(string) error) (RegisterRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" {
		return req, ErrNameRequired
	}
	if req.Email == "" {
		return req, ErrEmailInvalid
	}
	if validateEmail != nil {
		if err := validateEmail(req.Email); err != nil {
			return req, ErrEmailInvalid
		}
	}
	if minPasswordLength < 1 {
		minPasswordLength = 1
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > password.MaxPasswordBytes {
		return req, ErrPasswordLength
	}
	return req, nil
}

// RunRegister creates an account with an empty session list, then opens its
// first session and issues a token pair.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) RegisterResult {
	req, err := ValidateRegister(req, deps.MinPasswordLength, deps.ValidateEmail)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
	}

	if _, err := deps.Store.GetUserByEmail(ctx, req.Email); err == nil {
		return RegisterResult{Failure: RegisterFailureEmailTaken, Err: session.ErrEmailTaken}
	} else if !errors.Is(err, session.ErrUserNotFound) {
		return RegisterResult{Failure: RegisterFailureLookup, Err: err}
	}

	hash, err := deps.Hash(req.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	now := deps.Now().UTC()
	user := &session.User{
		ID:           deps.NewUserID(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := deps.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, session.ErrEmailTaken) {
			return RegisterResult{Failure: RegisterFailureEmailTaken, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err}
	}

	result := RegisterResult{UserID: user.ID, User: user}

	sess, err := deps.NewSession(now)
	if err != nil {
		result.Failure = RegisterFailureNewSession
		result.Err = err
		return result
	}
	result.SessionID = sess.TokenID
	if err := deps.Store.Append(ctx, user.ID, sess); err != nil {
		result.Failure = RegisterFailureAppend
		result.Err = err
		return result
	}
	user.Sessions = append(user.Sessions, sess)

	access, refreshToken, kind, err := issuePair(deps.IssueAccess, deps.IssueRefresh, user.ID, sess.TokenID)
	if err != nil {
		if _, rmErr := deps.Store.Remove(ctx, user.ID, sess.TokenID); rmErr != nil && deps.Warn != nil {
			deps.Warn("orphan session cleanup failed", rmErr)
		}
		result.Err = err
		if kind == issueFailedAccess {
			result.Failure = RegisterFailureIssueAccess
		} else {
			result.Failure = RegisterFailureIssueRefresh
		}
		return result
	}

	result.AccessToken = access
	result.RefreshToken = refreshToken
	return result
}

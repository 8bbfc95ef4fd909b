package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted size of each signing secret, in bytes.
const MinSecretLength = 32

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// ErrTokenInvalid is returned for every rejected token regardless of cause.
var ErrTokenInvalid = errors.New("invalid token")

var (
	errEmptyToken     = errors.New("empty token")
	errWrongKind      = errors.New("wrong token kind")
	errMissingSubject = errors.New("missing subject")
	errMissingID      = errors.New("missing jti")
)

type invalidTokenError struct {
	cause error
}

func (e *invalidTokenError) Error() string        { return ErrTokenInvalid.Error() }
func (e *invalidTokenError) Is(target error) bool { return target == ErrTokenInvalid }
func (e *invalidTokenError) Unwrap() error        { return e.cause }

func invalid(cause error) error {
	return &invalidTokenError{cause: cause}
}

// Cause returns the internal reason a token was rejected, for logs only.
func Cause(err error) error {
	var ie *invalidTokenError
	if errors.As(err, &ie) && ie.cause != nil {
		return ie.cause
	}
	return err
}

// Config carries the signing material and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now overrides the clock used for issuance and expiry checks.
	Now func() time.Time
}

// Manager issues and verifies access and refresh tokens. It is safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *AccessClaims) UserID() string { return c.Subject }

// Expiry returns the expiry instant of the token.
func (c *AccessClaims) Expiry() time.Time { return numericTime(c.ExpiresAt) }

// RefreshClaims is the payload of a refresh token. The registered ID (jti) is the
// session identifier the token is bound to.
type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *RefreshClaims) UserID() string { return c.Subject }

// SessionID returns the jti of the token.
func (c *RefreshClaims) SessionID() string { return c.ID }

// Expiry returns the expiry instant of the token.
func (c *RefreshClaims) Expiry() time.Time { return numericTime(c.ExpiresAt) }

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) < MinSecretLength {
		return nil, fmt.Errorf("access secret must be at least %d bytes", MinSecretLength)
	}
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, fmt.Errorf("refresh secret must be at least %d bytes", MinSecretLength)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.AccessSecret = bytes.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = bytes.Clone(cfg.RefreshSecret)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time { return m.config.Now() }

// IssueAccess signs an access token for userID.
func (m *Manager) IssueAccess(userID string) (string, error) {
	if userID == "" {
		return "", errMissingSubject
	}
	now := m.config.Now()
	claims := AccessClaims{
		Type:             typeAccess,
		RegisteredClaims: m.registered(userID, "", now, m.config.AccessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.AccessSecret)
}

// IssueRefresh signs a refresh token for userID bound to sessionID.
func (m *Manager) IssueRefresh(userID, sessionID string) (string, error) {
	if userID == "" {
		return "", errMissingSubject
	}
	if sessionID == "" {
		return "", errMissingID
	}
	now := m.config.Now()
	claims := RefreshClaims{
		Type:             typeRefresh,
		RegisteredClaims: m.registered(userID, sessionID, now, m.config.RefreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
}

// VerifyAccess checks signature, expiry and kind of an access token.
func (m *Manager) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Type != typeAccess {
		return nil, invalid(errWrongKind)
	}
	if claims.Subject == "" {
		return nil, invalid(errMissingSubject)
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and kind of a refresh token.
func (m *Manager) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != typeRefresh {
		return nil, invalid(errWrongKind)
	}
	if claims.Subject == "" {
		return nil, invalid(errMissingSubject)
	}
	if claims.ID == "" {
		return nil, invalid(errMissingID)
	}
	return claims, nil
}

func (m *Manager) registered(subject, id string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if m.config.Issuer != "" {
		rc.Issuer = m.config.Issuer
	}
	return rc
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	if strings.TrimSpace(tokenStr) == "" {
		return invalid(errEmptyToken)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return invalid(err)
	}
	if !token.Valid {
		return invalid(jwt.ErrTokenInvalidClaims)
	}
	return nil
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

package ffauth

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/password"
	"github.com/MrEthical07/ffauth/refresh"
)

// Config is the immutable engine configuration, built once at startup.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the two signing secrets and token lifetimes. Both secrets are
// HS256 keys of at least 32 bytes and must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls refresh rotation and session list housekeeping.
type SessionConfig struct {
	// RotationThreshold: a refresh token with less remaining lifetime than this
	// rotates on refresh.
	RotationThreshold time.Duration
	// PruneOnLogin removes sessions older than JWT.RefreshTTL before a login appends
	// a new one.
	PruneOnLogin bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls credential hashing.
type PasswordConfig struct {
	BcryptCost     int
	MinLength      int
	UpgradeOnLogin bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every field except the JWT secrets set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			RotationThreshold: refresh.DefaultThreshold,
			PruneOnLogin:      true,
		},
		Password: PasswordConfig{
			BcryptCost:     password.DefaultCost,
			MinLength:      6,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = bytes.Clone(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = bytes.Clone(cfg.JWT.RefreshSecret)
	return out
}

// Validate reports the first configuration error, if any.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if len(c.JWT.AccessSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT AccessSecret must be at least %d bytes", jwt.MinSecretLength)
	}
	if len(c.JWT.RefreshSecret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT RefreshSecret must be at least %d bytes", jwt.MinSecretLength)
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}

	// Session
	if c.Session.RotationThreshold <= 0 {
		return errors.New("Session RotationThreshold must be > 0")
	}

	// Password
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > password.MaxPasswordBytes {
		return fmt.Errorf("Password MinLength must be between 1 and %d", password.MaxPasswordBytes)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// String joins the warnings for a single log line.
func (ws LintWarnings) String() string {
	parts := make([]string, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, w.Code+": "+w.Message)
	}
	return strings.Join(parts, "; ")
}

// Lint reports legal but questionable settings. It never fails.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	if c.Session.RotationThreshold >= c.JWT.RefreshTTL {
		ws = append(ws, LintWarning{
			Code:    "rotation_every_refresh",
			Message: "RotationThreshold >= RefreshTTL; every refresh rotates the session",
		})
	}
	if c.JWT.AccessTTL > time.Hour {
		ws = append(ws, LintWarning{
			Code:    "access_ttl_long",
			Message: "AccessTTL exceeds 1h; access tokens are not revoked on logout",
		})
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		ws = append(ws, LintWarning{
			Code:    "refresh_ttl_long",
			Message: "RefreshTTL exceeds 30 days",
		})
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		ws = append(ws, LintWarning{
			Code:    "access_outlives_refresh",
			Message: "AccessTTL >= RefreshTTL",
		})
	}
	if c.Password.BcryptCost < password.DefaultCost {
		ws = append(ws, LintWarning{
			Code:    "bcrypt_cost_low",
			Message: fmt.Sprintf("BcryptCost below %d", password.DefaultCost),
		})
	}
	if !c.Session.PruneOnLogin {
		ws = append(ws, LintWarning{
			Code:    "prune_disabled",
			Message: "expired sessions accumulate in user records",
		})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:    "audit_disabled",
			Message: "audit events are not emitted",
		})
	}

	return ws
}

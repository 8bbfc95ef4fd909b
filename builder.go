package ffauth

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/ffauth/internal/audit"
	"github.com/MrEthical07/ffauth/internal/flows"
	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/password"
	"github.com/MrEthical07/ffauth/refresh"
	"github.com/MrEthical07/ffauth/session"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use: Build may succeed once.
type Builder struct {
	config Config
	store  session.Store
	logger *zap.Logger

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig. The JWT secrets and a store
// must still be provided.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the user and session store. Required.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the engine logger. Nil selects a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled. Without a
// sink, events are written through the engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the clock used for token issuance, verification and
// session timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("session store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	passwords, err := password.NewVerifier(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}

	policy, err := refresh.NewPolicy(cfg.Session.RotationThreshold)
	if err != nil {
		return nil, err
	}

	sink := b.auditSink
	if sink == nil {
		sink = NewZapSink(logger)
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		store:     b.store,
		tokens:    tokens,
		passwords: passwords,
		policy:    policy,
		logger:    logger,
		now:       now,
		metrics:   NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
	}
	engine.flows = engine.buildFlowDeps()

	if ws := cfg.Lint(); len(ws) > 0 {
		logger.Warn("ffauth config lint", zap.Strings("codes", ws.Codes()), zap.String("detail", ws.String()))
	}

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	validate := validator.New()
	validateEmail := func(email string) error {
		return validate.Var(email, "required,email")
	}
	warn := func(msg string, err error) {
		e.logger.Warn(msg, zap.Error(err))
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			MinPasswordLength: e.config.Password.MinLength,
			ValidateEmail:     validateEmail,
			Hash:              e.passwords.Hash,
			NewUserID:         uuid.NewString,
			Now:               e.now,
			NewSession:        session.NewSession,
			IssueAccess:       e.tokens.IssueAccess,
			IssueRefresh:      e.tokens.IssueRefresh,
			Warn:              warn,
			Store:             e.store,
		},
		Login: flows.LoginDeps{
			UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			PruneOnLogin:   e.config.Session.PruneOnLogin,
			PruneAge:       e.config.JWT.RefreshTTL,
			Verify:         e.passwords.Verify,
			Burn:           e.passwords.Burn,
			NeedsRehash:    e.passwords.NeedsRehash,
			Hash:           e.passwords.Hash,
			Now:            e.now,
			NewSession:     session.NewSession,
			IssueAccess:    e.tokens.IssueAccess,
			IssueRefresh:   e.tokens.IssueRefresh,
			Warn:           warn,
			Store:          e.store,
		},
		Refresh: flows.RefreshDeps{
			VerifyRefresh: e.tokens.VerifyRefresh,
			IssueAccess:   e.tokens.IssueAccess,
			IssueRefresh:  e.tokens.IssueRefresh,
			Decide:        e.policy.Decide,
			Now:           e.now,
			NewSession:    session.NewSession,
			Store:         e.store,
		},
		Logout: flows.LogoutDeps{
			VerifyRefresh: e.tokens.VerifyRefresh,
			Store:         e.store,
		},
		Authorize: flows.AuthorizeDeps{
			VerifyAccess: e.tokens.VerifyAccess,
		},
	}
}

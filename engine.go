package ffauth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/ffauth/internal/audit"
	"github.com/MrEthical07/ffauth/internal/flows"
	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/password"
	"github.com/MrEthical07/ffauth/refresh"
	"github.com/MrEthical07/ffauth/session"
	"go.uber.org/zap"
)

// Engine runs the session lifecycle: register, login, refresh, logout and
// authorize. It is safe for concurrent use; all per-user state lives in the
// session store.
type Engine struct {
	config    Config
	store     session.Store
	tokens    *jwt.Manager
	passwords *password.Verifier
	policy    refresh.Policy
	flows     flows.Deps
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// AccessTTL returns the access token lifetime, e.g. for cookie MaxAge.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) result(user *session.User, access, refreshToken string, rotated bool) *AuthResult {
	return &AuthResult{
		User:         NewPublicUser(user),
		AccessToken:  access,
		RefreshToken: refreshToken,
		Rotated:      rotated,
	}
}

func failureFields(op, failure, userID, sessionID string, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("failure", failure),
	}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	if err != nil {
		fields = append(fields, zap.Error(jwt.Cause(err)))
	}
	return fields
}

// Register creates an account and opens its first session.
//
// Register returns ErrInvalidInput for a blank name, a malformed email or a
// password outside the configured length bounds, and ErrConflict when the
// email is already registered.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRegister(ctx, flows.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	}, e.flows.Register)

	switch res.Failure {
	case flows.RegisterFailureNone:
	case flows.RegisterFailureInvalid:
		e.metricInc(MetricRegisterFailure)
		e.logger.Info("register rejected", failureFields("register", res.Failure.String(), "", "", res.Err)...)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrInvalidInput, reasonMetadata(res.Err.Error()))
		return nil, ErrInvalidInput
	case flows.RegisterFailureEmailTaken:
		e.metricInc(MetricRegisterDuplicate)
		e.logger.Info("register rejected", failureFields("register", res.Failure.String(), "", "", nil)...)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrConflict, nil)
		return nil, ErrConflict
	default:
		e.metricInc(MetricRegisterFailure)
		e.logger.Error("register failed", failureFields("register", res.Failure.String(), res.UserID, res.SessionID, res.Err)...)
		e.emitAudit(ctx, auditEventRegisterFailure, false, res.UserID, res.SessionID, res.Err, reasonMetadata(res.Failure.String()))
		return nil, ErrUnavailable
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, res.UserID, res.SessionID, nil, nil)

	return e.result(res.User, res.AccessToken, res.RefreshToken, false), nil
}

// Login verifies email and password and opens a new session. Unknown email,
// a credential-less account and a wrong password all return ErrAuthInvalid.
func (e *Engine) Login(ctx context.Context, email, pass string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, pass, e.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureUnknownUser, flows.LoginFailureNoPassword, flows.LoginFailureMismatch:
		e.metricInc(MetricLoginFailure)
		e.logger.Info("login rejected", failureFields("login", res.Failure.String(), res.UserID, "", nil)...)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", ErrAuthInvalid, reasonMetadata(res.Failure.String()))
		return nil, ErrAuthInvalid
	default:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("login failed", failureFields("login", res.Failure.String(), res.UserID, res.SessionID, res.Err)...)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, res.SessionID, res.Err, reasonMetadata(res.Failure.String()))
		return nil, ErrUnavailable
	}

	if res.Rehashed {
		e.metricInc(MetricPasswordRehashed)
		e.emitAudit(ctx, auditEventPasswordRehashed, true, res.UserID, "", nil, nil)
	}
	e.metricAdd(MetricSessionPruned, res.Pruned)
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, res.SessionID, nil, nil)

	return e.result(res.User, res.AccessToken, res.RefreshToken, false), nil
}

// Refresh exchanges a refresh token for a new access token. When the refresh
// token is within the rotation threshold of expiry its session is replaced
// and a new refresh token is returned; otherwise the presented token is
// returned unchanged. Invalid, expired, revoked and already-rotated tokens all
// return ErrAuthInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)

	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode,
		flows.RefreshFailureUserMissing,
		flows.RefreshFailureSessionRevoked,
		flows.RefreshFailureReplaceLost:
		e.metricInc(MetricRefreshFailure)
		switch res.Failure {
		case flows.RefreshFailureSessionRevoked:
			e.metricInc(MetricRefreshRevoked)
		case flows.RefreshFailureReplaceLost:
			e.metricInc(MetricRefreshRaceLost)
		}
		e.logger.Info("refresh rejected", failureFields("refresh", res.Failure.String(), res.UserID, res.SessionID, res.Err)...)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.SessionID, res.Err, reasonMetadata(res.Failure.String()))
		return nil, ErrAuthInvalid
	default:
		e.metricInc(MetricRefreshFailure)
		e.logger.Error("refresh failed", failureFields("refresh", res.Failure.String(), res.UserID, res.SessionID, res.Err)...)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.SessionID, res.Err, reasonMetadata(res.Failure.String()))
		return nil, ErrUnavailable
	}

	e.metricInc(MetricRefreshSuccess)
	if res.Rotated {
		e.metricInc(MetricRefreshRotated)
		e.metricInc(MetricSessionCreated)
		e.metricInc(MetricSessionRemoved)
		e.emitAudit(ctx, auditEventRefreshRotated, true, res.UserID, res.SessionID, nil, func() map[string]string {
			return map[string]string{
				"next_session_id": res.NewSessionID,
			}
		})
	} else {
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.SessionID, nil, nil)
	}

	return e.result(res.User, res.AccessToken, res.RefreshToken, res.Rotated), nil
}

// Logout removes the session bound to refreshToken. It never fails: invalid
// tokens and unknown sessions are ignored, and store failures are only
// logged. Access tokens already issued stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	if e == nil {
		return
	}

	res := flows.RunLogout(ctx, refreshToken, e.flows.Logout)

	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		if res.Removed {
			e.metricInc(MetricSessionRemoved)
		}
		e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.SessionID, nil, nil)
	case flows.LogoutFailureDecode:
		e.metricInc(MetricLogout)
		e.logger.Debug("logout with unusable token", failureFields("logout", res.Failure.String(), "", "", res.Err)...)
		e.emitAudit(ctx, auditEventLogout, false, "", "", res.Err, reasonMetadata(res.Failure.String()))
	default:
		e.metricInc(MetricLogout)
		e.logger.Error("logout failed", failureFields("logout", res.Failure.String(), res.UserID, res.SessionID, res.Err)...)
		e.emitAudit(ctx, auditEventLogout, false, res.UserID, res.SessionID, res.Err, reasonMetadata(res.Failure.String()))
	}
}

// Authorize verifies an access token and returns its principal. An empty
// token returns ErrAuthRequired; any other failure returns ErrAuthInvalid.
// Authorize is stateless and never consults the session store.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (Principal, error) {
	if e == nil {
		return Principal{}, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunAuthorize(accessToken, e.flows.Authorize)
	if e.metrics != nil {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.AuthorizeFailureNone:
		e.metricInc(MetricAuthorizeSuccess)
		return Principal{UserID: res.UserID, ExpiresAt: res.ExpiresAt}, nil
	case flows.AuthorizeFailureMissing:
		e.metricInc(MetricAuthorizeFailure)
		return Principal{}, ErrAuthRequired
	default:
		e.metricInc(MetricAuthorizeFailure)
		e.logger.Debug("authorize rejected", failureFields("authorize", res.Failure.String(), "", "", res.Err)...)
		return Principal{}, ErrAuthInvalid
	}
}

// User returns the public projection of userID. A deleted user yields
// ErrAuthInvalid so a stale access token cannot be used to enumerate accounts.
func (e *Engine) User(ctx context.Context, userID string) (PublicUser, error) {
	if e == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	u, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			return PublicUser{}, ErrAuthInvalid
		}
		e.logger.Error("user lookup failed", failureFields("user", "lookup_failed", userID, "", err)...)
		return PublicUser{}, ErrUnavailable
	}
	return NewPublicUser(u), nil
}

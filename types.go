package ffauth

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/ffauth/internal/audit"
	"github.com/MrEthical07/ffauth/session"
	"go.uber.org/zap"
)

// PublicUser is the only projection of a user record that is ever sent to a client.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPublicUser projects u, dropping the password hash and session list.
func NewPublicUser(u *session.User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Principal is the authorized caller behind an access token.
type Principal struct {
	UserID    string
	ExpiresAt time.Time
}

// AuthResult is returned by Register, Login and Refresh. Rotated is true only for a
// Refresh that replaced the session; otherwise RefreshToken is the presented token.
type AuthResult struct {
	User         PublicUser
	AccessToken  string
	RefreshToken string
	Rotated      bool
}

// RegisterInput is the payload accepted by Engine.Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink is an [AuditSink] that logs events through zap.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] writing through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}

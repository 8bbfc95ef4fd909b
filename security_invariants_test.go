package ffauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSecurityInvariantNoSecretsInAuditOrLogs(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	store := session.NewMemoryStore()
	clock := newTestClock()

	core, logs := observer.New(zapcore.DebugLevel)
	out := &lockedBuffer{}

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock.Now).
		WithLogger(zap.New(core)).
		WithAuditSink(NewJSONWriterSink(out)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	reg, err := engine.Register(ctx, RegisterInput{Name: "Alice", Email: testEmail, Password: testPassword})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := engine.Login(ctx, testEmail, "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}
	login, err := engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	clock.Advance(6*24*time.Hour + time.Hour)
	rotated, err := engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected stale refresh rejected")
	}
	engine.Logout(ctx, rotated.RefreshToken)
	engine.Logout(ctx, "garbage")
	engine.Close()

	u, err := store.GetUserByID(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}

	secrets := []string{
		testPassword,
		"wrong-password",
		u.PasswordHash,
		reg.AccessToken,
		reg.RefreshToken,
		login.AccessToken,
		login.RefreshToken,
		rotated.AccessToken,
		rotated.RefreshToken,
	}

	auditOut := out.String()
	if auditOut == "" {
		t.Fatal("expected audit output")
	}
	for _, s := range secrets {
		if strings.Contains(auditOut, s) {
			t.Fatalf("audit output leaks secret %q", s[:4])
		}
	}
	if !strings.Contains(auditOut, "203.0.113.7") {
		t.Fatal("expected client IP in audit events")
	}

	for _, entry := range logs.All() {
		line := entry.Message
		for _, f := range entry.Context {
			line += " " + f.String
			if f.Interface != nil {
				if e, ok := f.Interface.(error); ok {
					line += " " + e.Error()
				}
			}
		}
		for _, s := range secrets {
			if strings.Contains(line, s) {
				t.Fatalf("log entry %q leaks secret %q", entry.Message, s[:4])
			}
		}
	}

	events := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(auditOut), "\n") {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", line, err)
		}
		events[ev.EventType]++
	}
	for _, want := range []string{
		auditEventRegisterSuccess,
		auditEventLoginFailure,
		auditEventLoginSuccess,
		auditEventRefreshRotated,
		auditEventRefreshInvalid,
		auditEventLogout,
	} {
		if events[want] == 0 {
			t.Fatalf("expected %s event, got %v", want, events)
		}
	}
}

func TestSecurityInvariantPublicUserShape(t *testing.T) {
	engine := newTestEngine(t, testConfig(), session.NewMemoryStore(), newTestClock())
	reg := registerAlice(t, engine)

	raw, err := json.Marshal(reg.User)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("expected exactly id, name, email, createdAt; got %v", fields)
	}
	for _, k := range []string{"id", "name", "email", "createdAt"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing %q in %s", k, raw)
		}
	}
}

func TestSecurityInvariantSecretsAreSeparated(t *testing.T) {
	engine := newTestEngine(t, testConfig(), session.NewMemoryStore(), newTestClock())
	reg := registerAlice(t, engine)

	if _, err := engine.Refresh(context.Background(), reg.AccessToken); err == nil {
		t.Fatal("access token must not be accepted as a refresh token")
	}
	if _, err := engine.Authorize(context.Background(), reg.RefreshToken); err == nil {
		t.Fatal("refresh token must not be accepted as an access token")
	}
}

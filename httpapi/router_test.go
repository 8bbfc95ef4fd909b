package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/middleware"
	promexport "github.com/MrEthical07/ffauth/metrics/export/prometheus"
	"github.com/MrEthical07/ffauth/session"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T) *ffauth.Engine {
	t.Helper()

	cfg := ffauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.BcryptCost = 4
	cfg.Audit.Enabled = false

	engine, err := ffauth.New().WithConfig(cfg).WithStore(session.NewMemoryStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRouter(t *testing.T) (*gin.Engine, *ffauth.Engine) {
	t.Helper()
	engine := newTestEngine(t)
	return NewRouter(engine, Options{}), engine
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var out authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode auth response: %v (body %s)", err, rec.Body.String())
	}
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var out middleware.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v (body %s)", err, rec.Body.String())
	}
	return out
}

func registerBody() string {
	return `{"name":"Alice","email":"alice@example.com","password":"secret1"}`
}

func TestEndToEndSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	reg := decodeAuth(t, rec)
	if reg.User.Email != "alice@example.com" || reg.User.Name != "Alice" || reg.User.ID == "" {
		t.Fatalf("unexpected registered user: %+v", reg.User)
	}
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatal("register must return both tokens")
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	login := decodeAuth(t, rec)
	if login.User.ID != reg.User.ID {
		t.Fatalf("login returned user %q, want %q", login.User.ID, reg.User.ID)
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	refreshed := decodeAuth(t, rec)
	if refreshed.RefreshToken != login.RefreshToken {
		t.Fatal("refresh far from expiry must echo the same refresh token")
	}
	if refreshed.AccessToken == "" {
		t.Fatal("refresh must return an access token")
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", `{"refreshToken":"`+login.RefreshToken+`"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("logout: expected 200 ok, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.OK || body.Code != ffauth.CodeAuthInvalid {
		t.Fatalf("unexpected error body: %+v", body)
	}

	// The registration session is independent of the logged-out one.
	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+reg.RefreshToken+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register session refresh: expected 200, got %d", rec.Code)
	}
}

func TestRegisterConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody()); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/auth/register", `{"name":"Other","email":"alice@example.com","password":"secret2"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != ffauth.CodeConflict {
		t.Fatalf("expected CONFLICT, got %+v", body)
	}
}

func TestRegisterInvalidInput(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", `{"name":"Alice","email":"not-an-email","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != ffauth.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", body)
	}
}

func TestBindingFailures(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "register malformed", path: "/auth/register", body: `{"name":`},
		{name: "register missing field", path: "/auth/register", body: `{"name":"Alice","email":"alice@example.com"}`},
		{name: "login malformed", path: "/auth/login", body: `not json`},
		{name: "login empty", path: "/auth/login", body: `{}`},
		{name: "refresh malformed", path: "/auth/refresh", body: `[`},
		{name: "refresh missing token", path: "/auth/refresh", body: `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decodeError(t, rec)
			if body.OK || body.Code != ffauth.CodeValidation {
				t.Fatalf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/auth/register", registerBody())

	wrongPassword := doJSON(t, router, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong-pass"}`)
	unknownUser := doJSON(t, router, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"secret1"}`)

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("login failure bodies differ: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestLogoutAlwaysOK(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{``, `{`, `{}`, `{"refreshToken":"garbage"}`} {
		rec := doJSON(t, router, http.MethodPost, "/auth/logout", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("logout %q: expected 200, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok":true`) {
			t.Fatalf("logout %q: unexpected body %s", body, rec.Body.String())
		}
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAccessCookie(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	res := decodeAuth(t, rec)

	cookie := findCookie(rec, middleware.AccessCookieName)
	if cookie == nil {
		t.Fatal("expected access cookie on register")
	}
	if cookie.Value != res.AccessToken {
		t.Fatal("cookie must carry the access token")
	}
	if !cookie.HttpOnly {
		t.Fatal("access cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.Secure {
		t.Fatal("cookie must not be Secure over plain HTTP")
	}
	if cookie.MaxAge != 900 {
		t.Fatalf("expected MaxAge 900, got %d", cookie.MaxAge)
	}

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", `{"refreshToken":"`+res.RefreshToken+`"}`)
	cleared := findCookie(rec, middleware.AccessCookieName)
	if cleared == nil || cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("logout must clear the access cookie, got %+v", cleared)
	}
}

func TestMe(t *testing.T) {
	router, _ := newTestRouter(t)
	res := decodeAuth(t, doJSON(t, router, http.MethodPost, "/auth/register", registerBody()))

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != ffauth.CodeAuthRequired {
		t.Fatalf("expected AUTH_REQUIRED, got %+v", body)
	}

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	if body := decodeError(t, rec); rec.Code != http.StatusUnauthorized || body.Code != ffauth.CodeAuthInvalid {
		t.Fatalf("expected 401 AUTH_INVALID, got %d %+v", rec.Code, body)
	}

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.AccessToken)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer, got %d (%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		User ffauth.PublicUser `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if out.User.ID != res.User.ID || out.User.Email != "alice@example.com" {
		t.Fatalf("unexpected me user: %+v", out.User)
	}

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: middleware.AccessCookieName, Value: res.AccessToken})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", rec.Code)
	}
}

func TestRequireAuthSetsPrincipal(t *testing.T) {
	engine := newTestEngine(t)
	res, err := engine.Register(t.Context(), ffauth.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	router := gin.New()
	router.GET("/protected", RequireAuth(engine), func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID)
	})

	rec := doJSON(t, router, http.MethodGet, "/protected", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.AccessToken)
	})
	if rec.Code != http.StatusOK || rec.Body.String() != res.User.ID {
		t.Fatalf("expected principal %q, got %d %q", res.User.ID, rec.Code, rec.Body.String())
	}

	nilGuarded := gin.New()
	nilGuarded.GET("/protected", RequireAuth(nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	if rec := doJSON(t, nilGuarded, http.MethodGet, "/protected", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("nil engine must reject, got %d", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	engine := newTestEngine(t)
	router := NewRouter(engine, Options{Metrics: promexport.NewPrometheusExporter(engine).Handler()})

	rec := doJSON(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected healthz response: %d %s", rec.Code, rec.Body.String())
	}

	doJSON(t, router, http.MethodPost, "/auth/register", registerBody())

	rec = doJSON(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ffauth_register_success_total 1") {
		t.Fatalf("metrics output missing register counter:\n%s", rec.Body.String())
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	router, _ := newTestRouter(t)
	if rec := doJSON(t, router, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", rec.Code)
	}
}

func TestCORSAllowedOrigins(t *testing.T) {
	engine := newTestEngine(t)
	router := NewRouter(engine, Options{AllowedOrigins: []string{"https://app.fitforge.test"}})

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://app.fitforge.test")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.fitforge.test" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed for listed origin, got %q", got)
	}

	rec = doJSON(t, router, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.test")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin header for foreign origin: %q", got)
	}
}

func TestCORSDefaultRejectsForeignOrigin(t *testing.T) {
	router, _ := newTestRouter(t)

	preflight := doJSON(t, router, http.MethodOptions, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	})
	if got := preflight.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("preflight: unexpected allow-origin %q", got)
	}
	if got := preflight.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("preflight: unexpected allow-credentials %q", got)
	}

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	engine := newTestEngine(t)
	router := NewRouter(engine, Options{AllowedOrigins: []string{"*"}})

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://anywhere.test")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard must not allow credentials, got %q", got)
	}
}

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	*httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewUserStore()
	codec := security.NewJWTCodec(testSecret)
	svc := service.NewAuthService(store, security.NewBcryptHasher(bcrypt.MinCost), codec,
		service.TokenTTL{}, nil, zerolog.Nop())

	e := NewRouter(Deps{
		AuthService: svc,
		Tokens:      codec,
		Ready:       map[string]ports.Pinger{"store": store},
		Log:         zerolog.Nop(),
		Registry:    prometheus.NewRegistry(),
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testServer{Server: srv, client: &http.Client{Jar: jar}}
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	raw     string
	code    int
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, method, path, body, bearer string, cookies ...*http.Cookie) apiResponse {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	client := s.client
	if len(cookies) > 0 {
		// Explicit cookies bypass the jar.
		client = &http.Client{}
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	out := apiResponse{raw: string(raw), code: res.StatusCode, cookies: res.Cookies()}
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: invalid json %q: %v", method, path, raw, err)
		}
	}
	return out
}

func (r apiResponse) accessToken(t *testing.T) string {
	t.Helper()
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(r.Data, &data); err != nil || data.AccessToken == "" {
		t.Fatalf("no access token in %s", r.raw)
	}
	return data.AccessToken
}

func (r apiResponse) refreshCookie() *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == handler.RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestRouter_RegisterLoginProfileScenario(t *testing.T) {
	s := newTestServer(t)

	reg := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"a@x.com","password":"longenough1"}`, "")
	if reg.code != http.StatusCreated || reg.Status != "success" {
		t.Fatalf("register: %d %s", reg.code, reg.raw)
	}
	var data struct {
		User map[string]any `json:"user"`
	}
	if err := json.Unmarshal(reg.Data, &data); err != nil {
		t.Fatalf("register data: %v", err)
	}
	if data.User["email"] != "a@x.com" {
		t.Fatalf("unexpected user: %v", data.User)
	}
	for _, leaked := range []string{"password", "refreshToken"} {
		if strings.Contains(reg.raw, leaked) {
			t.Fatalf("register body leaks %s: %s", leaked, reg.raw)
		}
	}
	if reg.refreshCookie() == nil {
		t.Fatalf("expected refresh cookie on register")
	}

	bad := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"wrong-password"}`, "")
	if bad.code != http.StatusUnauthorized || bad.Message != "Invalid email or password" || bad.Status != "error" {
		t.Fatalf("wrong password: %d %s", bad.code, bad.raw)
	}

	unknown := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"nobody@x.com","password":"wrong-password"}`, "")
	if unknown.code != bad.code || unknown.Message != bad.Message {
		t.Fatalf("unknown email must look like a wrong password: %d %s", unknown.code, unknown.raw)
	}

	anon := s.do(t, http.MethodGet, "/api/v1/auth/profile", "", "")
	if anon.code != http.StatusUnauthorized || anon.Message != "No token provided" {
		t.Fatalf("anonymous profile: %d %s", anon.code, anon.raw)
	}

	forged := s.do(t, http.MethodGet, "/api/v1/auth/profile", "", "not-a-token")
	if forged.code != http.StatusUnauthorized || forged.Message != "Invalid or expired token" {
		t.Fatalf("forged token profile: %d %s", forged.code, forged.raw)
	}

	me := s.do(t, http.MethodGet, "/api/v1/auth/profile", "", reg.accessToken(t))
	if me.code != http.StatusOK || !strings.Contains(me.raw, `"email":"a@x.com"`) {
		t.Fatalf("profile: %d %s", me.code, me.raw)
	}
}

func TestRouter_RefreshRotationAndLogout(t *testing.T) {
	s := newTestServer(t)

	reg := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"b@x.com","password":"longenough1"}`, "")
	if reg.code != http.StatusCreated {
		t.Fatalf("register: %d %s", reg.code, reg.raw)
	}
	first := reg.refreshCookie()

	// The jar replays the cookie set by register.
	ref := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", "")
	if ref.code != http.StatusOK {
		t.Fatalf("refresh: %d %s", ref.code, ref.raw)
	}
	access := ref.accessToken(t)
	second := ref.refreshCookie()
	if second == nil || second.Value == first.Value {
		t.Fatalf("expected a rotated refresh cookie")
	}

	replay := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", "", &http.Cookie{Name: first.Name, Value: first.Value})
	if replay.code != http.StatusUnauthorized || replay.Message != "Invalid refresh token" {
		t.Fatalf("replayed refresh token: %d %s", replay.code, replay.raw)
	}
	if ck := replay.refreshCookie(); ck == nil || ck.MaxAge >= 0 {
		t.Fatalf("failed refresh must clear the cookie, got %+v", ck)
	}

	out := s.do(t, http.MethodPost, "/api/v1/auth/logout", "", access)
	if out.code != http.StatusOK || strings.TrimSpace(out.raw) != `{"status":"success","data":null}` {
		t.Fatalf("logout: %d %s", out.code, out.raw)
	}

	after := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", "", &http.Cookie{Name: second.Name, Value: second.Value})
	if after.code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %d %s", after.code, after.raw)
	}

	missing := s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", "", &http.Cookie{Name: "other", Value: "x"})
	if missing.code != http.StatusUnauthorized || missing.Message != "Refresh token not provided" {
		t.Fatalf("missing cookie: %d %s", missing.code, missing.raw)
	}
}

func TestRouter_DuplicateRegistrationAndValidation(t *testing.T) {
	s := newTestServer(t)

	body := `{"email":"c@x.com","password":"longenough1"}`
	if res := s.do(t, http.MethodPost, "/api/v1/auth/register", body, ""); res.code != http.StatusCreated {
		t.Fatalf("register: %d %s", res.code, res.raw)
	}
	dup := s.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	if dup.code != http.StatusConflict || dup.Message != "User with this email already exists" {
		t.Fatalf("duplicate: %d %s", dup.code, dup.raw)
	}

	invalid := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"nope","password":"short"}`, "")
	if invalid.code != http.StatusBadRequest || invalid.Message != "Invalid email format, Password must be at least 8 characters" {
		t.Fatalf("validation: %d %s", invalid.code, invalid.raw)
	}
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodGet, "/api/v1/nothing-here", "", "")
	if res.code != http.StatusNotFound || res.Status != "error" || res.Message != "Can't find /api/v1/nothing-here on this server!" {
		t.Fatalf("404: %d %s", res.code, res.raw)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	if res := s.do(t, http.MethodGet, "/health", "", ""); res.code != http.StatusOK || res.Status != "ok" {
		t.Fatalf("health: %d %s", res.code, res.raw)
	}
	if res := s.do(t, http.MethodGet, "/health/ready", "", ""); res.code != http.StatusOK || res.Status != "ok" {
		t.Fatalf("ready: %d %s", res.code, res.raw)
	}

	metrics := s.do(t, http.MethodGet, "/metrics", "", "")
	if metrics.code != http.StatusOK || !strings.Contains(metrics.raw, "auth_http_requests_total") {
		t.Fatalf("metrics: %d", metrics.code)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/service"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSOrigins(t *testing.T) {
	h := CORS([]string{"https://app.clinica.com.br", "*.clinica.dev"})(okHandler)

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.clinica.com.br", true},
		{"https://recife.clinica.dev", true},
		{"https://clinica.dev", false},
		{"https://evil.com", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/cities", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin") == tc.origin
		if got != tc.allowed {
			t.Fatalf("origin %s: allowed=%v, want %v", tc.origin, got, tc.allowed)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("unexpected preflight response %d %v", rec.Code, rec.Header())
	}

	req.Header.Set("Origin", "https://evil.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unknown origin preflight = %d, want 403", rec.Code)
	}
}

func TestIPRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	h := IPRateLimit(limiter)(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked", i)
		}
	}
	rec := send("10.0.0.1:1001")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", rec.Code, rec.Header())
	}
	if rec := send("10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Fatalf("other IPs keep their own bucket")
	}

	clock = clock.Add(time.Second)
	if rec := send("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("bucket must refill after a second")
	}

	clock = clock.Add(limiterIdleTTL + time.Minute)
	send("10.0.0.3:1000")
	if len(limiter.buckets) != 1 {
		t.Fatalf("idle buckets must be swept, have %d", len(limiter.buckets))
	}
}

type stubAuthenticator struct {
	principal auth.Principal
	err       error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	if token != "valido" {
		return auth.Principal{}, service.ErrUnauthenticated
	}
	return s.principal, s.err
}

func TestAuthenticateAndGuards(t *testing.T) {
	collaborator := auth.Principal{UserID: uuid.New(), Role: auth.RoleCollaborator}
	chain := func(a Authenticator, guard func(http.Handler) http.Handler) http.Handler {
		return Authenticate(a)(guard(okHandler))
	}

	cases := []struct {
		name   string
		a      Authenticator
		guard  func(http.Handler) http.Handler
		token  string
		cookie string
		want   int
	}{
		{"anonymous", stubAuthenticator{}, RequireAuth, "", "", http.StatusUnauthorized},
		{"invalid token", stubAuthenticator{}, RequireAuth, "outro", "", http.StatusUnauthorized},
		{"bearer", stubAuthenticator{principal: collaborator}, RequireAuth, "valido", "", http.StatusOK},
		{"cookie", stubAuthenticator{principal: collaborator}, RequireAuth, "", "valido", http.StatusOK},
		{"collaborator on admin route", stubAuthenticator{principal: collaborator}, RequireAdmin, "valido", "", http.StatusForbidden},
		{"store failure", stubAuthenticator{err: errors.New("redis fora")}, RequireAuth, "valido", "", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tc.cookie})
		}
		rec := httptest.NewRecorder()
		chain(tc.a, tc.guard).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestRecoverReturnsEnvelope(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("quebrou")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"INTERNAL"`) {
		t.Fatalf("unexpected recover response %d %s", rec.Code, rec.Body.String())
	}
}

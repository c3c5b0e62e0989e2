package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookcraft-backend/internal/session"
)

func TestJWTAuth_Middleware(t *testing.T) {
	auth := NewJWTAuth("secret", "default-app-id")

	withTenant, _ := auth.GenerateToken("acme", "u1", time.Minute)
	noTenant, _ := auth.GenerateToken("", "u2", time.Minute)
	expired, _ := auth.GenerateToken("", "u3", -time.Minute)
	foreign, _ := NewJWTAuth("other", "x").GenerateToken("", "u4", time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     session.Identity
	}{
		{"tenant claim", "Bearer " + withTenant, http.StatusOK, session.Identity{Tenant: "acme", UserID: "u1"}},
		{"default tenant", "Bearer " + noTenant, http.StatusOK, session.Identity{Tenant: "default-app-id", UserID: "u2"}},
		{"missing header", "", http.StatusUnauthorized, session.Identity{}},
		{"wrong scheme", "Token " + noTenant, http.StatusUnauthorized, session.Identity{}},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, session.Identity{}},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, session.Identity{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got session.Identity
			h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetIdentity(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if got != tc.wantID {
				t.Fatalf("expected identity %+v, got %+v", tc.wantID, got)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request must be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other callers are counted separately")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("a new window must reset the count")
	}
}

func TestRateLimiter_MiddlewareReturns429(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), session.Identity{Tenant: "t", UserID: "u"}))
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id to be echoed, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" {
		t.Fatalf("expected incoming request id to be kept, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected origin to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be allowed")
	}
}

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vestly/internal/auth"
)

func TestBearerFromRequest(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"Bearer  padded ", "padded"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerFromRequest(req); got != tc.want {
			t.Errorf("bearerFromRequest(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	repo := auth.NewInMemoryRepository()
	sessions := auth.NewSessionIssuer(repo, "secret", 0, 0)
	handler := newAuthMiddleware(sessions, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler ran without credentials")
	}))

	for _, header := range []string{"", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestOptionalAuthMiddlewarePassesGuestsThrough(t *testing.T) {
	repo := auth.NewInMemoryRepository()
	sessions := auth.NewSessionIssuer(repo, "secret", 0, 0)

	var sawUser *auth.User
	ran := false
	handler := newOptionalAuthMiddleware(sessions, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		sawUser = UserFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !ran {
		t.Fatal("guest request was blocked")
	}
	if sawUser != nil {
		t.Errorf("guest request carried a user: %+v", sawUser)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := newSecurityHeadersMiddleware("production")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("missing Strict-Transport-Security outside development")
	}
}

func TestSecurityHeadersSkipHSTSInDevelopment(t *testing.T) {
	handler := newSecurityHeadersMiddleware("development")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("unexpected Strict-Transport-Security in development: %q", got)
	}
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newTestGoogleProvider(server *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("google-id", "google-secret", "https://api.example.com/auth/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/auth",
		TokenURL: server.URL + "/token",
	}
	p.userInfoURL = server.URL + "/userinfo"
	p.http = server.Client()
	return p
}

func TestGoogleAuthURL(t *testing.T) {
	p := NewGoogleProvider("google-id", "google-secret", "https://api.example.com/auth/callback")

	u, err := url.Parse(p.AuthURL("signed-state", FlowLanding))
	if err != nil {
		t.Fatalf("parsing auth URL: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "google-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "signed-state" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("prompt") != "select_account" {
		t.Errorf("prompt = %q, want select_account", q.Get("prompt"))
	}
	if q.Get("scope") != "openid email profile" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestGoogleExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code = %q, want the-code", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "g-token", "token_type": "Bearer"})
	}))
	defer server.Close()

	p := newTestGoogleProvider(server)
	token, err := p.Exchange(context.Background(), "the-code", FlowLanding)
	if err != nil {
		t.Fatalf("Exchange returned error: %v", err)
	}
	if token != "g-token" {
		t.Errorf("token = %q, want g-token", token)
	}
}

func TestGoogleExchangeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Malformed auth code.",
		})
	}))
	defer server.Close()

	p := newTestGoogleProvider(server)
	_, err := p.Exchange(context.Background(), "bad-code", FlowLanding)
	if err == nil {
		t.Fatal("expected an error for a rejected code")
	}
	if KindOf(err) != KindProviderRejected {
		t.Errorf("kind = %s, want %s", KindOf(err), KindProviderRejected)
	}
}

func TestGoogleExchangeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := newTestGoogleProvider(server)
	server.Close()

	_, err := p.Exchange(context.Background(), "the-code", FlowLanding)
	if err == nil {
		t.Fatal("expected an error when the token endpoint is down")
	}
	if KindOf(err) != KindProviderUnavailable {
		t.Errorf("kind = %s, want %s", KindOf(err), KindProviderUnavailable)
	}
}

func TestGoogleIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer g-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":          "g-123",
			"email":       "ada@example.com",
			"given_name":  "Ada",
			"family_name": "Lovelace",
			"picture":     "https://lh3.example.com/ada",
		})
	}))
	defer server.Close()

	p := newTestGoogleProvider(server)
	identity, err := p.Identity(context.Background(), "g-token")
	if err != nil {
		t.Fatalf("Identity returned error: %v", err)
	}
	want := Identity{
		Provider:   ProviderGoogle,
		ExternalID: "g-123",
		Email:      "ada@example.com",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		AvatarURL:  "https://lh3.example.com/ada",
	}
	if identity != want {
		t.Errorf("Identity = %+v, want %+v", identity, want)
	}
}

func TestGoogleIdentityWithoutEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "g-123"})
	}))
	defer server.Close()

	p := newTestGoogleProvider(server)
	_, err := p.Identity(context.Background(), "g-token")
	if err == nil {
		t.Fatal("expected an error for a profile without email")
	}
	if KindOf(err) != KindIdentityUnresolvable {
		t.Errorf("kind = %s, want %s", KindOf(err), KindIdentityUnresolvable)
	}
}

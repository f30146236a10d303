package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"vestly/internal/auth"
	"vestly/internal/config"
)

// fakeProvider scripts provider behavior per test via function fields.
type fakeProvider struct {
	name     string
	authURL  func(state string, flow auth.Flow) string
	exchange func(ctx context.Context, code string, flow auth.Flow) (string, error)
	identity func(ctx context.Context, accessToken string) (auth.Identity, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthURL(state string, flow auth.Flow) string {
	if f.authURL != nil {
		return f.authURL(state, flow)
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string, flow auth.Flow) (string, error) {
	if f.exchange != nil {
		return f.exchange(ctx, code, flow)
	}
	return "provider-access-token", nil
}

func (f *fakeProvider) Identity(ctx context.Context, accessToken string) (auth.Identity, error) {
	if f.identity != nil {
		return f.identity(ctx, accessToken)
	}
	return auth.Identity{
		Provider:   f.name,
		ExternalID: "ext-1",
		Email:      "a@b.com",
		FirstName:  "Ada",
	}, nil
}

type testEnv struct {
	repo     *auth.InMemoryRepository
	resolver *auth.Resolver
	sessions *auth.SessionIssuer
	codec    *auth.StateCodec
	router   http.Handler
}

const (
	testAppRootURL  = "https://app.vestly.test"
	testCallbackURL = "https://api.vestly.test/auth/callback"
)

func newTestEnv(t *testing.T, providers ...auth.Provider) *testEnv {
	t.Helper()

	logger := testLogger()
	repo := auth.NewInMemoryRepository()
	resolver := auth.NewResolver(repo)
	sessions := auth.NewSessionIssuer(repo, "test-session-secret", 0, 0)
	codec := auth.NewStateCodec("test-state-secret")

	cfg := config.Config{
		Environment:    "development",
		AllowedOrigins: []string{testAppRootURL},
		AppRootURL:     testAppRootURL,
	}

	oauth := NewOAuthHandler(providers, codec, resolver, sessions, testAppRootURL, testCallbackURL, logger)
	social := NewSocialHandler(providers, nil, resolver, sessions, logger)
	account := NewAccountHandler(resolver, sessions, logger)
	router := NewRouter(cfg, oauth, social, account, sessions, logger)

	return &testEnv{
		repo:     repo,
		resolver: resolver,
		sessions: sessions,
		codec:    codec,
		router:   router,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

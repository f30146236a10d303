package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"vestly/internal/auth"
	"vestly/internal/config"
	transporthttp "vestly/internal/http"
	"vestly/internal/platform/database"
	"vestly/internal/platform/logging"
	"vestly/internal/platform/migrate"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cfg.StateSecret == "" {
		logger.Warn("AUTH_STATE_SECRET not set; using an ephemeral state key, in-flight logins will not survive restarts")
	}
	if cfg.SessionSecret == "" {
		logger.Warn("AUTH_SESSION_SECRET not set; using an ephemeral signing key, sessions will not survive restarts")
	}

	codec := auth.NewStateCodec(cfg.StateSecret)
	resolver := auth.NewResolver(repo)
	sessions := auth.NewSessionIssuer(repo, cfg.SessionSecret, cfg.SessionTTL, cfg.BearerTTL)
	providers := buildProviders(cfg, logger)

	var apple *auth.AppleVerifier
	if len(cfg.AppleClientIDs) > 0 {
		apple = auth.NewAppleVerifier(ctx, cfg.AppleClientIDs)
	}

	oauthHandler := transporthttp.NewOAuthHandler(providers, codec, resolver, sessions, cfg.AppRootURL, cfg.CallbackURL(), logger)
	socialHandler := transporthttp.NewSocialHandler(providers, apple, resolver, sessions, logger)
	accountHandler := transporthttp.NewAccountHandler(resolver, sessions, logger)
	router := transporthttp.NewRouter(cfg, oauthHandler, socialHandler, accountHandler, sessions, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Vestly API listening", "addr", srv.Addr, "store", cfg.DataStore, "callback_url", cfg.CallbackURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildProviders constructs an adapter for every provider whose credential
// pair is present. Missing ones stay out of the map so their routes fail
// with a configuration error instead of half-working.
func buildProviders(cfg config.Config, logger *slog.Logger) []auth.Provider {
	var providers []auth.Provider

	if cfg.Google.Configured() {
		providers = append(providers, auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.CallbackURL()))
	}
	if cfg.GitHub.Configured() {
		web := auth.GitHubCredentials{ClientID: cfg.GitHub.ClientID, ClientSecret: cfg.GitHub.ClientSecret}
		mobile := auth.GitHubCredentials{ClientID: cfg.GitHubMobile.ClientID, ClientSecret: cfg.GitHubMobile.ClientSecret}
		providers = append(providers, auth.NewGitHubProvider(web, mobile, cfg.CallbackURL()))
	}
	if cfg.Facebook.Configured() {
		providers = append(providers, auth.NewFacebookProvider(cfg.Facebook.ClientID, cfg.Facebook.ClientSecret, cfg.CallbackURL()))
	}

	if len(providers) == 0 && len(cfg.AppleClientIDs) == 0 {
		logger.Warn("no oauth providers configured; only password and demo login are available")
	}

	return providers
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		return auth.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), cleanup, nil
}

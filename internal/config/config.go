package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OAuthCredentials holds a client id/secret pair registered with a provider.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether both halves of the credential pair are present.
func (c OAuthCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config aggregates runtime configuration for the Vestly API.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	LogLevel       string
	AllowedOrigins []string

	// AppRootURL is where the landing flow sends users after login.
	AppRootURL string
	// CallbackBaseURL overrides the externally visible host used to build
	// the OAuth callback URI (useful behind proxies/tunnels).
	CallbackBaseURL string

	// StateSecret signs the OAuth state round-tripped through providers.
	// When empty the process derives an ephemeral secret at startup.
	StateSecret string
	// SessionSecret signs bearer credentials.
	SessionSecret string

	SessionTTL time.Duration
	BearerTTL  time.Duration

	Google       OAuthCredentials
	GitHub       OAuthCredentials
	GitHubMobile OAuthCredentials
	Facebook     OAuthCredentials
	// AppleClientIDs is the audience allow-list for Apple identity tokens
	// (web bundle id, mobile bundle id, Expo proxy client id).
	AppleClientIDs []string
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/vestly_database_url")
	if err != nil {
		return Config{}, err
	}

	stateSecret, err := getEnvOrFile("AUTH_STATE_SECRET", "/run/secrets/vestly_state_secret")
	if err != nil {
		return Config{}, err
	}

	sessionSecret, err := getEnvOrFile("AUTH_SESSION_SECRET", "/run/secrets/vestly_session_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:    getEnv("APP_ENV", "development"),
		DatabaseURL:    databaseURL,
		DataStore:      strings.ToLower(getEnv("DATA_STORE", "memory")),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:4200,http://localhost:8080")),
		AppRootURL:     strings.TrimSuffix(getEnv("APP_ROOT_URL", "http://localhost:4200"), "/"),
		StateSecret:    strings.TrimSpace(stateSecret),
		SessionSecret:  strings.TrimSpace(sessionSecret),
		Google: OAuthCredentials{
			ClientID:     getEnv("AUTH_GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_GOOGLE_CLIENT_SECRET", ""),
		},
		GitHub: OAuthCredentials{
			ClientID:     getEnv("AUTH_GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_GITHUB_CLIENT_SECRET", ""),
		},
		GitHubMobile: OAuthCredentials{
			ClientID:     getEnv("AUTH_GITHUB_MOBILE_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_GITHUB_MOBILE_CLIENT_SECRET", ""),
		},
		Facebook: OAuthCredentials{
			ClientID:     getEnv("AUTH_FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_FACEBOOK_CLIENT_SECRET", ""),
		},
		AppleClientIDs: parseCSV(getEnv("AUTH_APPLE_CLIENT_IDS", "")),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	cfg.CallbackBaseURL = strings.TrimSuffix(getEnv("AUTH_CALLBACK_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)), "/")

	sessionTTL, err := parseDuration("AUTH_SESSION_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	bearerTTL, err := parseDuration("AUTH_BEARER_TTL", sessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.BearerTTL = bearerTTL

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if !cfg.IsDevelopment() {
		if cfg.StateSecret == "" {
			return Config{}, fmt.Errorf("AUTH_STATE_SECRET is required outside development")
		}
		if cfg.SessionSecret == "" {
			return Config{}, fmt.Errorf("AUTH_SESSION_SECRET is required outside development")
		}
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsDevelopment reports whether the app runs in the development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// CallbackURL is the fixed, pre-registered OAuth callback URI. It is derived
// from configuration, never from request headers.
func (c Config) CallbackURL() string {
	return c.CallbackBaseURL + "/auth/callback"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}

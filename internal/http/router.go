package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vestly/internal/auth"
	"vestly/internal/config"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, oauth *OAuthHandler, social *SocialHandler, account *AccountHandler, sessions *auth.SessionIssuer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/start", oauth.Start)
		r.Get("/callback", oauth.Callback)

		r.Post("/social", social.Login)
		r.Post("/register", account.Register)
		r.Post("/login", account.Login)
		r.Post("/demo", account.Demo)

		if cfg.IsDevelopment() {
			r.Get("/debug/callback-url", oauth.DebugCallbackURL)
		}

		r.Group(func(r chi.Router) {
			r.Use(newAuthMiddleware(sessions, logger))
			r.Get("/me", account.Me)
			r.Patch("/me", account.UpdateMe)
			r.Post("/logout", account.Logout)
			r.Post("/logout-all", account.LogoutAll)
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}

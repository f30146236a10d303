package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vestly/internal/auth"
)

// AccountHandler serves profile, password, and session-management routes.
type AccountHandler struct {
	resolver *auth.Resolver
	sessions *auth.SessionIssuer
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(resolver *auth.Resolver, sessions *auth.SessionIssuer, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{resolver: resolver, sessions: sessions, logger: logger}
}

// Me handles GET /auth/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UpdateMe handles PATCH /auth/me. Only supplied fields change.
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized(w)
		return
	}

	var payload struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	updated, err := h.resolver.UpdateProfile(r.Context(), user.ID, payload.FirstName, payload.LastName, payload.AvatarURL)
	if err != nil {
		h.logger.Error("profile update failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated.Public())
}

// Logout handles POST /auth/logout: revokes the presented session only.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), bearerFromRequest(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /auth/logout-all: revokes every session of the user.
func (h *AccountHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized(w)
		return
	}

	count, err := h.sessions.RevokeAll(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("logout-all failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	h.logger.Info("revoked all sessions", "user_id", user.ID, "count", count)
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, err := h.resolver.Register(r.Context(), payload.Email, payload.Password, strings.TrimSpace(payload.FirstName), strings.TrimSpace(payload.LastName))
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.issueAndRespond(w, r, user, http.StatusCreated)
}

// Login handles POST /auth/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, err := h.resolver.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("password login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.issueAndRespond(w, r, user, http.StatusOK)
}

// Demo handles POST /auth/demo: logs into the shared demo account.
func (h *AccountHandler) Demo(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.Demo(r.Context())
	if err != nil {
		h.logger.Error("demo login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	h.issueAndRespond(w, r, user, http.StatusOK)
}

func (h *AccountHandler) issueAndRespond(w http.ResponseWriter, r *http.Request, user *auth.User, status int) {
	bearer, _, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("session issue failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, status, loginResponse{Token: bearer, User: user.Public()})
}

package http

import (
	"log/slog"
	"net/http"

	"vestly/internal/auth"
)

// SocialHandler implements the direct-token login path used by native SDK
// flows that already hold a provider token and skip the browser redirect.
type SocialHandler struct {
	providers map[string]auth.Provider
	apple     *auth.AppleVerifier
	resolver  *auth.Resolver
	sessions  *auth.SessionIssuer
	logger    *slog.Logger
}

// NewSocialHandler creates a SocialHandler. apple may be nil when no Apple
// client ids are configured.
func NewSocialHandler(providers []auth.Provider, apple *auth.AppleVerifier, resolver *auth.Resolver, sessions *auth.SessionIssuer, logger *slog.Logger) *SocialHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &SocialHandler{
		providers: byName,
		apple:     apple,
		resolver:  resolver,
		sessions:  sessions,
		logger:    logger,
	}
}

type socialLoginRequest struct {
	Provider      string `json:"provider"`
	Token         string `json:"token"`
	IdentityToken string `json:"identityToken"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	AvatarURL     string `json:"avatarUrl"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  auth.PublicUser `json:"user"`
}

// Login handles POST /auth/social.
func (h *SocialHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload socialLoginRequest
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	if payload.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	identity, ok := h.verifyIdentity(w, r, payload)
	if !ok {
		return
	}

	user, isNew, err := h.resolver.Resolve(r.Context(), identity)
	if err != nil {
		kind := auth.KindOf(err)
		if kind == auth.KindIdentityUnresolvable {
			writeError(w, http.StatusBadRequest, userMessageForKind(kind))
			return
		}
		h.logger.Error("social login: identity resolution failed", "provider", payload.Provider, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete sign-in")
		return
	}

	bearer, _, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("social login: session issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.logger.Info("social login successful", "provider", payload.Provider, "user_id", user.ID, "new_user", isNew)
	writeJSON(w, http.StatusOK, loginResponse{Token: bearer, User: user.Public()})
}

// verifyIdentity establishes who the caller is from the supplied token.
// It writes the error response itself and reports ok=false on failure.
func (h *SocialHandler) verifyIdentity(w http.ResponseWriter, r *http.Request, payload socialLoginRequest) (auth.Identity, bool) {
	if payload.Provider == auth.ProviderApple {
		if h.apple == nil {
			writeError(w, http.StatusInternalServerError, "sign-in with apple is not configured")
			return auth.Identity{}, false
		}
		token := payload.IdentityToken
		if token == "" {
			token = payload.Token
		}
		if token == "" {
			writeError(w, http.StatusBadRequest, "identityToken is required for apple")
			return auth.Identity{}, false
		}

		// Apple omits name/avatar on repeat logins; the client payload is
		// the only source for them.
		fallback := auth.Identity{
			Email:     payload.Email,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			AvatarURL: payload.AvatarURL,
		}
		identity, err := h.apple.Verify(r.Context(), token, fallback)
		if err != nil {
			h.writeVerifyError(w, payload.Provider, err)
			return auth.Identity{}, false
		}
		return identity, true
	}

	provider, configured := h.providers[payload.Provider]
	if !configured {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return auth.Identity{}, false
	}
	if payload.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return auth.Identity{}, false
	}

	identity, err := provider.Identity(r.Context(), payload.Token)
	if err != nil {
		h.writeVerifyError(w, payload.Provider, err)
		return auth.Identity{}, false
	}
	return identity, true
}

func (h *SocialHandler) writeVerifyError(w http.ResponseWriter, provider string, err error) {
	kind := auth.KindOf(err)
	h.logger.Warn("social login: identity verification failed", "provider", provider, "kind", kind, "error", err)
	writeError(w, statusForKind(kind), userMessageForKind(kind))
}

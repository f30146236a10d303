package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vestly/internal/auth"
)

// redirectProviders are the names the start route accepts. Apple never goes
// through the browser redirect dance; its identity tokens arrive via
// POST /auth/social.
var redirectProviders = map[string]struct{}{
	auth.ProviderGoogle:   {},
	auth.ProviderGitHub:   {},
	auth.ProviderFacebook: {},
}

// OAuthHandler drives the start and callback halves of the OAuth broker.
type OAuthHandler struct {
	providers   map[string]auth.Provider
	codec       *auth.StateCodec
	resolver    *auth.Resolver
	sessions    *auth.SessionIssuer
	appRootURL  string
	callbackURL string
	logger      *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler. Only adapters for configured
// providers should be passed in; requests for the rest fail with a
// configuration error.
func NewOAuthHandler(providers []auth.Provider, codec *auth.StateCodec, resolver *auth.Resolver, sessions *auth.SessionIssuer, appRootURL, callbackURL string, logger *slog.Logger) *OAuthHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OAuthHandler{
		providers:   byName,
		codec:       codec,
		resolver:    resolver,
		sessions:    sessions,
		appRootURL:  appRootURL,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Start handles GET /auth/{provider}/start.
// Signs the routing information into the state parameter and redirects to
// the provider's consent screen.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	if _, known := redirectProviders[name]; !known {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	provider, configured := h.providers[name]
	if !configured {
		h.logger.Error("oauth start: provider not configured", "provider", name)
		writeError(w, http.StatusInternalServerError, "sign-in with "+name+" is not configured")
		return
	}

	flow, ok := auth.ParseFlow(r.URL.Query().Get("flow"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid flow")
		return
	}

	redirectTarget := r.URL.Query().Get("redirect_target")
	if flow == auth.FlowMobile && redirectTarget == "" {
		writeError(w, http.StatusBadRequest, "redirect_target is required for the mobile flow")
		return
	}

	state, err := h.codec.Encode(auth.State{
		Provider:       name,
		Flow:           flow,
		RedirectTarget: redirectTarget,
	})
	if err != nil {
		h.logger.Error("oauth start: encode state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.Redirect(w, r, provider.AuthURL(state, flow), http.StatusFound)
}

// Callback handles GET /auth/callback for all providers. The signed state
// decides both which adapter runs and how the result — success or failure —
// travels back to the caller.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	state, stateOK := h.codec.Decode(q.Get("state"))
	var delivery resultDelivery = errorPageDelivery{appRootURL: h.appRootURL}
	if stateOK {
		delivery = deliveryForFlow(state.Flow, state.RedirectTarget, h.appRootURL)
	}

	// The provider reporting an error (user declined consent, etc.) takes
	// precedence; it still honors the flow's channel when the state decoded.
	if errParam := q.Get("error"); errParam != "" {
		message := q.Get("error_description")
		if message == "" {
			message = "The provider declined the sign-in."
		}
		h.logger.Warn("oauth callback: provider error", "error", errParam, "description", message)
		delivery.Failure(w, r, http.StatusUnauthorized, auth.KindProviderDeclined, message)
		return
	}

	// A bad state means tampering or an expired/duplicated flow; logged
	// above the consent-decline noise.
	if !stateOK {
		h.logger.Error("oauth callback: invalid state")
		delivery.Failure(w, r, http.StatusBadRequest, auth.KindInvalidState, "This sign-in attempt is invalid or has expired. Please try again.")
		return
	}

	if state.Flow == auth.FlowMobile && state.RedirectTarget == "" {
		h.logger.Error("oauth callback: mobile flow without redirect target")
		delivery = errorPageDelivery{appRootURL: h.appRootURL}
		delivery.Failure(w, r, http.StatusBadRequest, auth.KindInvalidState, "This sign-in attempt is invalid. Please try again.")
		return
	}

	code := q.Get("code")
	if code == "" {
		delivery.Failure(w, r, http.StatusBadRequest, auth.KindInvalidRequest, "Missing authorization code.")
		return
	}

	provider, configured := h.providers[state.Provider]
	if !configured {
		h.logger.Error("oauth callback: provider not configured", "provider", state.Provider)
		delivery.Failure(w, r, http.StatusInternalServerError, auth.KindConfigurationMissing, "Sign-in with "+state.Provider+" is not configured.")
		return
	}

	accessToken, err := provider.Exchange(r.Context(), code, state.Flow)
	if err != nil {
		h.failWithError(w, r, delivery, state.Provider, "code exchange failed", err)
		return
	}

	identity, err := provider.Identity(r.Context(), accessToken)
	if err != nil {
		h.failWithError(w, r, delivery, state.Provider, "identity fetch failed", err)
		return
	}

	user, isNew, err := h.resolver.Resolve(r.Context(), identity)
	if err != nil {
		h.failWithError(w, r, delivery, state.Provider, "identity resolution failed", err)
		return
	}

	bearer, _, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.failWithError(w, r, delivery, state.Provider, "session issue failed", err)
		return
	}

	h.logger.Info("oauth login successful", "provider", state.Provider, "flow", state.Flow, "user_id", user.ID, "new_user", isNew)
	delivery.Success(w, r, loginOutcome{Token: bearer, User: user.Public(), IsNewUser: isNew})
}

// DebugCallbackURL reports the fixed callback URI this deployment expects
// providers to be registered with.
func (h *OAuthHandler) DebugCallbackURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"callbackUrl": h.callbackURL})
}

func (h *OAuthHandler) failWithError(w http.ResponseWriter, r *http.Request, delivery resultDelivery, provider, stage string, err error) {
	kind := auth.KindOf(err)
	h.logger.Error("oauth callback: "+stage, "provider", provider, "kind", kind, "error", err)
	delivery.Failure(w, r, statusForKind(kind), kind, userMessageForKind(kind))
}

// statusForKind maps the error taxonomy onto HTTP statuses: transient
// provider trouble is a 502, an explicit rejection a 401, an unusable
// identity a 400.
func statusForKind(kind auth.ErrorKind) int {
	switch kind {
	case auth.KindProviderUnavailable:
		return http.StatusBadGateway
	case auth.KindProviderRejected, auth.KindProviderDeclined, auth.KindTokenInvalid:
		return http.StatusUnauthorized
	case auth.KindIdentityUnresolvable, auth.KindInvalidRequest, auth.KindInvalidState:
		return http.StatusBadRequest
	case auth.KindConfigurationMissing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func userMessageForKind(kind auth.ErrorKind) string {
	switch kind {
	case auth.KindProviderUnavailable:
		return "The sign-in provider is unreachable right now. Please try again in a moment."
	case auth.KindProviderRejected:
		return "The sign-in provider rejected this attempt. Please start over."
	case auth.KindProviderDeclined:
		return "The sign-in was cancelled."
	case auth.KindIdentityUnresolvable:
		return "We could not find a usable email address on your account."
	case auth.KindTokenInvalid:
		return "Your sign-in token is invalid or expired."
	case auth.KindConfigurationMissing:
		return "This sign-in method is not configured."
	default:
		return "Something went wrong completing your sign-in. Please try again."
	}
}

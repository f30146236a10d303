package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	githubAuthEndpoint  = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint = "https://github.com/login/oauth/access_token"
	githubUserEndpoint  = "https://api.github.com/user"
	githubEmailEndpoint = "https://api.github.com/user/emails"
)

// GitHubCredentials is one registered GitHub OAuth app.
type GitHubCredentials struct {
	ClientID     string
	ClientSecret string
}

// GitHubProvider authenticates against GitHub. GitHub answers its token
// endpoint with 200 plus an error body on failure, and profile emails may
// be private; both quirks stay inside this adapter. Mobile logins can use
// a separately registered OAuth app, falling back to the web app when no
// mobile pair is configured.
type GitHubProvider struct {
	web         GitHubCredentials
	mobile      GitHubCredentials
	redirectURL string
	endpoints   githubEndpoints
	http        *http.Client
}

type githubEndpoints struct {
	auth  string
	token string
	user  string
	email string
}

// NewGitHubProvider creates a GitHub adapter with the fixed callback URI.
func NewGitHubProvider(web, mobile GitHubCredentials, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		web:         web,
		mobile:      mobile,
		redirectURL: redirectURL,
		endpoints: githubEndpoints{
			auth:  githubAuthEndpoint,
			token: githubTokenEndpoint,
			user:  githubUserEndpoint,
			email: githubEmailEndpoint,
		},
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GitHubProvider) Name() string { return ProviderGitHub }

func (g *GitHubProvider) creds(flow Flow) GitHubCredentials {
	if flow == FlowMobile && g.mobile.ClientID != "" && g.mobile.ClientSecret != "" {
		return g.mobile
	}
	return g.web
}

// AuthURL builds the authorization URL for GitHub OAuth.
func (g *GitHubProvider) AuthURL(state string, flow Flow) string {
	u, _ := url.Parse(g.endpoints.auth)
	q := u.Query()
	q.Set("client_id", g.creds(flow).ClientID)
	q.Set("redirect_uri", g.redirectURL)
	q.Set("scope", "read:user user:email")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

// Exchange trades the authorization code for an access token.
func (g *GitHubProvider) Exchange(ctx context.Context, code string, flow Flow) (string, error) {
	creds := g.creds(flow)
	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", g.redirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoints.token, strings.NewReader(form.Encode()))
	if err != nil {
		return "", WrapError(KindProviderUnavailable, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", WrapError(KindProviderUnavailable, "github token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	var tr struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", WrapError(KindProviderRejected, "decode github token response", err)
	}
	if tr.Error != "" {
		return "", NewError(KindProviderRejected, fmt.Sprintf("github rejected code exchange: %s %s", tr.Error, tr.ErrorDesc))
	}
	if tr.AccessToken == "" {
		return "", NewError(KindProviderRejected, "github returned no access token")
	}
	return tr.AccessToken, nil
}

// Identity fetches the GitHub profile and, when the profile email is
// private, the primary verified address from the emails API.
func (g *GitHubProvider) Identity(ctx context.Context, accessToken string) (Identity, error) {
	var info struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := g.getJSON(ctx, g.endpoints.user, accessToken, &info); err != nil {
		return Identity{}, err
	}

	email := info.Email
	if email == "" {
		primary, err := g.primaryVerifiedEmail(ctx, accessToken)
		if err != nil {
			return Identity{}, err
		}
		email = primary
	}

	first, last := splitDisplayName(info.Name)
	return Identity{
		Provider:   ProviderGitHub,
		ExternalID: fmt.Sprintf("%d", info.ID),
		Email:      email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  info.AvatarURL,
	}, nil
}

// primaryVerifiedEmail selects the address marked both primary and verified.
// Anything less does not establish an identity.
func (g *GitHubProvider) primaryVerifiedEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, g.endpoints.email, accessToken, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", NewError(KindIdentityUnresolvable, "github account has no primary verified email")
}

func (g *GitHubProvider) getJSON(ctx context.Context, endpoint, accessToken string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WrapError(KindProviderUnavailable, "build github request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return WrapError(KindProviderUnavailable, "github api unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewError(KindProviderRejected, fmt.Sprintf("github api status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return WrapError(KindProviderRejected, "decode github response", err)
	}
	return nil
}

// splitDisplayName divides a single display name into first/last parts.
func splitDisplayName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	first, last, found := strings.Cut(name, " ")
	if !found {
		return first, ""
	}
	return first, strings.TrimSpace(last)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vestly/internal/auth"
)

func (e *testEnv) registerAndLogin(t *testing.T) (string, auth.PublicUser) {
	t.Helper()
	rec := e.postJSON(t, "/auth/register", map[string]string{
		"email":     "ada@example.com",
		"password":  "correct horse",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	return payload.Token, payload.User
}

func (e *testEnv) authedRequest(t *testing.T, method, target, bearer string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	token, registered := env.registerAndLogin(t)

	rec := env.authedRequest(t, http.MethodGet, "/auth/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
	var me auth.PublicUser
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decoding me response: %v", err)
	}
	if me.ID != registered.ID || me.Email != "ada@example.com" {
		t.Errorf("me = %+v, want the registered user", me)
	}

	login := env.postJSON(t, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	if login.Code != http.StatusOK {
		t.Errorf("login status = %d: %s", login.Code, login.Body.String())
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t)

	rec := env.postJSON(t, "/auth/register", map[string]string{
		"email":    "ADA@example.com",
		"password": "battery staple",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/auth/register", map[string]string{
		"email":    "ada@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t)

	rec := env.postJSON(t, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestDemoLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/auth/demo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload.User.Email != "demo@vestly.app" {
		t.Errorf("demo email = %q", payload.User.Email)
	}
}

func TestUpdateMePatchesSuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t)

	rec := env.authedRequest(t, http.MethodPatch, "/auth/me", token, `{"firstName":"Augusta"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var me auth.PublicUser
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if me.FirstName != "Augusta" {
		t.Errorf("firstName = %q, want Augusta", me.FirstName)
	}
	if me.LastName != "Lovelace" {
		t.Errorf("lastName = %q, patch must not blank omitted fields", me.LastName)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t)

	rec := env.authedRequest(t, http.MethodPost, "/auth/logout", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	if rec := env.authedRequest(t, http.MethodGet, "/auth/me", token, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	first, _ := env.registerAndLogin(t)

	login := env.postJSON(t, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	var second loginResponse
	if err := json.Unmarshal(login.Body.Bytes(), &second); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}

	rec := env.authedRequest(t, http.MethodPost, "/auth/logout-all", first, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout-all status = %d", rec.Code)
	}

	for i, bearer := range []string{first, second.Token} {
		if rec := env.authedRequest(t, http.MethodGet, "/auth/me", bearer, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("session %d survived logout-all: status %d", i, rec.Code)
		}
	}
}

func TestMeRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/auth/me")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}
}

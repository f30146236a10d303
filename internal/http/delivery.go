package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"vestly/internal/auth"
)

// loginOutcome is what a successful callback hands to the delivery layer.
type loginOutcome struct {
	Token     string
	User      auth.PublicUser
	IsNewUser bool
}

// resultDelivery renders a login outcome back to whichever surface started
// the flow. Success and failure travel the same channel: a popup that
// cannot see a full-page redirect gets its error via postMessage too.
type resultDelivery interface {
	Success(w http.ResponseWriter, r *http.Request, outcome loginOutcome)
	Failure(w http.ResponseWriter, r *http.Request, status int, kind auth.ErrorKind, message string)
}

// deliveryForFlow selects the strategy from the flow carried in the signed
// state. The redirect target is trusted only because it rode inside the
// MAC-protected state.
func deliveryForFlow(flow auth.Flow, redirectTarget, appRootURL string) resultDelivery {
	switch flow {
	case auth.FlowPopup:
		return popupDelivery{}
	case auth.FlowMobile:
		return mobileDelivery{target: redirectTarget, appRootURL: appRootURL}
	default:
		return redirectDelivery{appRootURL: appRootURL}
	}
}

// redirectDelivery serves the landing flow: a 302 back to the app root with
// the token and user summary as query parameters. The client extracts and
// discards them from the visible URL.
type redirectDelivery struct {
	appRootURL string
}

func (d redirectDelivery) Success(w http.ResponseWriter, r *http.Request, outcome loginOutcome) {
	userJSON, _ := json.Marshal(outcome.User)
	q := url.Values{}
	q.Set("token", outcome.Token)
	q.Set("user", string(userJSON))
	http.Redirect(w, r, d.appRootURL+"/?"+q.Encode(), http.StatusFound)
}

func (d redirectDelivery) Failure(w http.ResponseWriter, r *http.Request, status int, kind auth.ErrorKind, message string) {
	renderErrorPage(w, status, kind, message, d.appRootURL)
}

// popupDelivery serves logins started from a popup window: a small HTML
// document posts the result to the opener and closes itself. When the
// opener is unavailable (popup blocked, opened as a tab) it degrades to a
// manual close message.
type popupDelivery struct{}

func (popupDelivery) Success(w http.ResponseWriter, r *http.Request, outcome loginOutcome) {
	renderPopup(w, http.StatusOK, map[string]any{
		"type":      "auth:success",
		"token":     outcome.Token,
		"user":      outcome.User,
		"isNewUser": outcome.IsNewUser,
	})
}

func (popupDelivery) Failure(w http.ResponseWriter, r *http.Request, status int, kind auth.ErrorKind, message string) {
	renderPopup(w, status, map[string]any{
		"type":    "auth:error",
		"error":   string(kind),
		"message": message,
	})
}

// mobileDelivery serves native app logins: a 302 into the app's own URI
// scheme. Without a known target (malformed state) it falls back to the
// HTML error page.
type mobileDelivery struct {
	target     string
	appRootURL string
}

func (d mobileDelivery) Success(w http.ResponseWriter, r *http.Request, outcome loginOutcome) {
	sep := "?"
	if strings.Contains(d.target, "?") {
		sep = "&"
	}
	http.Redirect(w, r, d.target+sep+"token="+url.QueryEscape(outcome.Token), http.StatusFound)
}

func (d mobileDelivery) Failure(w http.ResponseWriter, r *http.Request, status int, kind auth.ErrorKind, message string) {
	if d.target == "" {
		renderErrorPage(w, status, kind, message, d.appRootURL)
		return
	}
	q := url.Values{}
	q.Set("error", string(kind))
	q.Set("message", message)
	http.Redirect(w, r, d.target+"?"+q.Encode(), http.StatusFound)
}

// errorPageDelivery is the fallback when the state cannot be decoded and
// the intended channel is unknown.
type errorPageDelivery struct {
	appRootURL string
}

func (d errorPageDelivery) Success(w http.ResponseWriter, r *http.Request, outcome loginOutcome) {
	// Unreachable: a flow without decodable state never succeeds.
	renderErrorPage(w, http.StatusInternalServerError, auth.KindInternal, "unexpected delivery", d.appRootURL)
}

func (d errorPageDelivery) Failure(w http.ResponseWriter, r *http.Request, status int, kind auth.ErrorKind, message string) {
	renderErrorPage(w, status, kind, message, d.appRootURL)
}

var popupTemplate = template.Must(template.New("popup").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Vestly sign-in</title></head>
<body>
<p id="status">Completing sign-in&hellip;</p>
<script>
var payload = {{.Payload}};
if (window.opener) {
  window.opener.postMessage(payload, "*");
  setTimeout(function () { window.close(); }, 300);
} else {
  document.getElementById("status").textContent = "Sign-in finished. You can close this window.";
}
</script>
</body>
</html>
`))

var errorPageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Sign-in failed</title></head>
<body>
<h1>Sign-in failed</h1>
<p>{{.Message}}</p>
<p><a href="{{.RetryURL}}">Try again</a></p>
</body>
</html>
`))

func renderPopup(w http.ResponseWriter, status int, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = popupTemplate.Execute(w, struct{ Payload template.JS }{Payload: template.JS(data)})
}

func renderErrorPage(w http.ResponseWriter, status int, _ auth.ErrorKind, message, appRootURL string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = errorPageTemplate.Execute(w, struct {
		Message  string
		RetryURL string
	}{Message: message, RetryURL: appRootURL + "/login"})
}

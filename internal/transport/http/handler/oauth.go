package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ottshare/party-api/internal/application/oauthgw"
)

// OAuthHandler handles the provider callback (producer) and the redirect
// resolution (consumer) sides of the OAuth gateway.
type OAuthHandler struct {
	svc          oauthgw.Service
	frontendBase string
}

func NewOAuthHandler(svc oauthgw.Service, frontendBase string) *OAuthHandler {
	return &OAuthHandler{svc: svc, frontendBase: frontendBase}
}

// Callback resolves the provider credential and redirects the browser to the
// front-end with the outcome encoded in query parameters. Failures redirect
// with no parameters so the front-end lands on login with nothing retained.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	credential := r.URL.Query().Get("credential")
	if credential == "" {
		credential = r.URL.Query().Get("code")
	}
	if credential == "" {
		http.Redirect(w, r, h.frontendBase, http.StatusFound)
		return
	}

	out, err := h.svc.HandleProviderCallback(r.Context(), provider, credential)
	if err != nil {
		http.Redirect(w, r, h.frontendBase, http.StatusFound)
		return
	}
	target, err := h.svc.BuildRedirect(h.frontendBase, out)
	if err != nil {
		http.Redirect(w, r, h.frontendBase, http.StatusFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Resolve is the consumer side: it interprets redirect query parameters and
// reports the resolved outcome as JSON. Pure; nothing is created here.
func (h *OAuthHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	out := h.svc.ParseRedirect(r.URL.Query())
	if out.Failed {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "FAILED"})
		return
	}
	resp := map[string]interface{}{"status": out.Status}
	if out.Tokens != nil {
		resp["access_token"] = out.Tokens.AccessToken
		resp["refresh_token"] = out.Tokens.RefreshToken
		resp["expires_in"] = out.Tokens.ExpiresIn
	}
	if out.Pending != nil {
		resp["pending"] = out.Pending
	}
	writeJSON(w, http.StatusOK, resp)
}

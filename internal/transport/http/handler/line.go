package handler

import (
	"net/http"
	"net/url"

	"github.com/plateping/api/internal/application/auth"
)

// LineHandler handles the LINE OAuth login endpoints: web and mobile code
// flows plus the native access-token flow.
type LineHandler struct {
	svc            auth.Service
	deeplinkScheme string
}

func NewLineHandler(svc auth.Service, deeplinkScheme string) *LineHandler {
	return &LineHandler{svc: svc, deeplinkScheme: deeplinkScheme}
}

func (h *LineHandler) AuthorizeURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, URLEnvelope{URL: h.svc.LineAuthorizeURL(r.URL.Query().Get("state"), false)})
}

func (h *LineHandler) MobileAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, URLEnvelope{URL: h.svc.LineAuthorizeURL(r.URL.Query().Get("state"), true)})
}

func (h *LineHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code" validate:"required"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.LineLogin(r.Context(), body.Code, body.RedirectURI)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

// MobileCallback is where LINE redirects the mobile code flow. It finishes the
// login server-side and bounces the result into the app via its deep link, so
// the access token never passes through an intermediate web page.
func (h *LineHandler) MobileCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	if errCode := q.Get("error"); errCode != "" {
		h.redirect(w, r, state, url.Values{"error": {errCode}})
		return
	}
	code := q.Get("code")
	if code == "" {
		h.redirect(w, r, state, url.Values{"error": {"missing_code"}})
		return
	}

	result, err := h.svc.LineMobileLogin(r.Context(), code)
	if err != nil {
		h.redirect(w, r, state, url.Values{"error": {"login_failed"}})
		return
	}
	h.redirect(w, r, state, url.Values{"access_token": {result.AccessToken}})
}

func (h *LineHandler) redirect(w http.ResponseWriter, r *http.Request, state string, params url.Values) {
	if state != "" {
		params.Set("state", state)
	}
	target := h.deeplinkScheme + "://line-login?" + params.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *LineHandler) TokenLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessToken string `json:"access_token" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.LineTokenLogin(r.Context(), body.AccessToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

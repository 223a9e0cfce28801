package handler

import (
	"net/http"

	"github.com/plateping/api/internal/application/auth"
)

// AppleHandler handles Sign in with Apple.
type AppleHandler struct {
	svc auth.Service
}

func NewAppleHandler(svc auth.Service) *AppleHandler {
	return &AppleHandler{svc: svc}
}

func (h *AppleHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IdentityToken string `json:"identity_token" validate:"required"`
		FullName      string `json:"full_name"`
		Email         string `json:"email"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.AppleLogin(r.Context(), body.IdentityToken, body.FullName, body.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

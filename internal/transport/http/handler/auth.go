package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plateping/api/internal/application/auth"
	"github.com/plateping/api/internal/transport/http/middleware"
)

// AuthHandler handles the phone, password and license-plate login endpoints.
type AuthHandler struct {
	svc     auth.Service
	echoOTP bool
}

func NewAuthHandler(svc auth.Service, echoOTP bool) *AuthHandler {
	return &AuthHandler{svc: svc, echoOTP: echoOTP}
}

func (h *AuthHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code, remaining, err := h.svc.VerifyPhone(r.Context(), body.Phone)
	if err != nil {
		httpError(w, err)
		return
	}
	resp := VerifyPhoneEnvelope{Message: "verification code sent", Remaining: remaining}
	if h.echoOTP {
		resp.Code = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone" validate:"required"`
		Code  string `json:"code" validate:"required,len=6"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Login(r.Context(), body.Phone, body.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone    string `json:"phone" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.PasswordLogin(r.Context(), body.Phone, body.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) PlateLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LicensePlate string `json:"license_plate" validate:"required"`
		Password     string `json:"password" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.PlateLogin(r.Context(), body.LicensePlate, body.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone    string `json:"phone" validate:"required"`
		Code     string `json:"code" validate:"required,len=6"`
		Password string `json:"password" validate:"required,userpassword"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.SetPassword(r.Context(), body.Phone, body.Code, body.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: result.AccessToken, User: result.User})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone    string `json:"phone" validate:"required"`
		Code     string `json:"code" validate:"required,len=6"`
		Password string `json:"password" validate:"required,userpassword"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), body.Phone, body.Code, body.Password); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

func (h *AuthHandler) CheckPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "missing phone")
		return
	}
	exists, hasPassword, err := h.svc.CheckPhone(r.Context(), phone)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckPhoneEnvelope{Exists: exists, HasPassword: hasPassword})
}

// Session echoes the verified claims of the presented access token, letting
// clients check what they are holding without a store round-trip.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// VerifyReset clears the daily OTP issuance counter for a phone. Wired only
// outside production.
func (h *AuthHandler) VerifyReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone" validate:"required"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResetVerifyCount(r.Context(), body.Phone); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification count reset"})
}

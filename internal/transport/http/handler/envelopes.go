package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/plateping/api/internal/domain"
	"github.com/plateping/api/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

// AuthEnvelope wraps every successful login response.
type AuthEnvelope struct {
	AccessToken string       `json:"access_token,omitempty"`
	User        *domain.User `json:"user,omitempty"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// VerifyPhoneEnvelope wraps OTP issuance responses. Code is present only when
// echoing is enabled for the environment.
type VerifyPhoneEnvelope struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Remaining int    `json:"remaining"`
}

// CheckPhoneEnvelope reports registration state for a phone number.
type CheckPhoneEnvelope struct {
	Exists      bool `json:"exists"`
	HasPassword bool `json:"has_password"`
}

// URLEnvelope carries a provider authorization URL.
type URLEnvelope struct {
	URL string `json:"url"`
}

// decode unmarshals the request body into dst and checks its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body")
	}
	return validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain errors onto HTTP statuses. Credential mismatches keep
// their remaining-attempt count; everything unrecognized is a 500 with an
// opaque body.
func httpError(w http.ResponseWriter, err error) {
	var mismatch *domain.MismatchError
	if errors.As(err, &mismatch) {
		writeJSON(w, http.StatusUnauthorized, MessageEnvelope{
			Error:             "invalid credentials",
			RemainingAttempts: &mismatch.Remaining,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBlocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrLocked),
		errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrNoPassword),
		errors.Is(err, domain.ErrProviderLogin),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

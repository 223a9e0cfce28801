package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadRequest    = errors.New("bad request")
	ErrRateLimited   = errors.New("daily send limit reached")
	ErrLocked        = errors.New("too many failed attempts")
	ErrBlocked       = errors.New("account blocked")
	ErrNoPassword    = errors.New("no password set")
	ErrProviderLogin = errors.New("provider login failed")
	ErrInvalidToken  = errors.New("invalid identity token")
)

// MismatchError is returned when a submitted code or password is wrong but
// the subject is not yet locked out. Remaining is the number of attempts left
// before lockout.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("invalid credential, %d attempts remaining", e.Remaining)
}

func (e *MismatchError) Unwrap() error { return ErrUnauthorized }

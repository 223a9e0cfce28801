package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// passwordRe is the account password policy: 6-12 ASCII alphanumerics.
var passwordRe = regexp.MustCompile(`^[A-Za-z0-9]{6,12}$`)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("userpassword", func(fl validator.FieldLevel) bool {
		return passwordRe.MatchString(fl.Field().String())
	})
}

// Password reports whether s satisfies the account password policy.
func Password(s string) bool {
	return passwordRe.MatchString(s)
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

package plate

import "strings"

// Normalize converts a license plate to its canonical form: uppercase ASCII
// with separators and whitespace stripped, so "abc-1234" and "ABC 1234" both
// become "ABC1234". Lookups and lockout keys must always use this form so
// visually equivalent inputs hit the same user record and the same
// rate-limit bucket.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

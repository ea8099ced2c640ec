package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrWeakPassword is wrapped by every strength-policy rejection.
var ErrWeakPassword = errors.New("password does not meet policy")

// Denylist of passwords rejected regardless of character classes.
var commonPasswords = map[string]struct{}{
	"password123": {},
	"admin123":    {},
	"qwerty123":   {},
}

// ValidateStrength applies the registration/change policy: at least 8
// characters with upper, lower, digit, and special classes present, and
// not on the common-password denylist.
func ValidateStrength(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", ErrWeakPassword)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("%w: missing an uppercase letter", ErrWeakPassword)
	case !hasLower:
		return fmt.Errorf("%w: missing a lowercase letter", ErrWeakPassword)
	case !hasDigit:
		return fmt.Errorf("%w: missing a digit", ErrWeakPassword)
	case !hasSpecial:
		return fmt.Errorf("%w: missing a special character", ErrWeakPassword)
	}

	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return fmt.Errorf("%w: too common", ErrWeakPassword)
	}
	return nil
}

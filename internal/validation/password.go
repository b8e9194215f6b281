package validation

import (
	"errors"
	"strings"
)

const (
	minPasswordLength = 12
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrPasswordCommon   = errors.New("password is too common, please choose a stronger one")
)

// Substrings that make a password trivially guessable, including the
// product's own vocabulary.
var weakFragments = []string{
	"password", "123456", "qwerty", "letmein", "welcome", "admin",
	"habit", "flywheel", "energy",
}

// ValidatePassword is used both at registration and on password change.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, fragment := range weakFragments {
		if strings.Contains(lower, fragment) {
			return ErrPasswordCommon
		}
	}
	if isOneRune(password) {
		return ErrPasswordCommon
	}
	return nil
}

func isOneRune(s string) bool {
	first := []rune(s)[0]
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

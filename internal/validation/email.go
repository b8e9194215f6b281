package validation

import (
	"errors"
	"net/mail"
	"strings"
)

// Longest address SMTP can carry (RFC 5321).
const maxEmailLength = 254

var (
	ErrEmailRequired = errors.New("email address is required")
	ErrEmailTooLong  = errors.New("email address is too long (max 254 characters)")
	ErrEmailInvalid  = errors.New("invalid email address format")
)

// NormalizeEmail is the form accounts are stored and looked up under.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only. Display-name forms such as
// "Ada <ada@example.com>" parse as valid mail headers but are not accepted
// as login names.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return ErrEmailRequired
	case len(email) > maxEmailLength:
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

package access

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrMissingEmail = errors.New("email is required")
	ErrInvalidEmail = errors.New("invalid email format")
)

// ValidEmail checks that email is a single bare address.
func ValidEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingEmail
	}

	// Must contain "@" and not be the first or last character
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return ErrInvalidEmail
	}

	// Reject display names ("Dana <dana@example.com>") and lists.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

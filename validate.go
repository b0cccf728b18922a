package goaccount

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern    = regexp.MustCompile(`^[A-Z0-9a-z._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,64}$`)
	usernamePattern = regexp.MustCompile(`^[A-Z0-9a-zâéè._+-]{1,15}$`)
)

const passwordSymbols = "#?!@$%^&<>*~:`-"

// ValidateEmail checks the address against the engine's email format.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailEmpty
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateUsername checks the handle format: 1-15 characters from letters,
// digits, a small accented set, and . _ + -.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidatePassword enforces the strength policy: at least 8 characters with
// one uppercase letter, one lowercase letter, one digit, and one symbol.
// Surrounding whitespace is ignored, matching what sign-up forms submit.
func ValidatePassword(password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return ErrPasswordEmpty
	}

	// Character classes are scanned directly; Go's regexp has no lookaheads.
	var upper, lower, digit, symbol bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	if length < 8 || !upper || !lower || !digit || !symbol {
		return ErrPasswordWeak
	}
	return nil
}

// isEmailIdentifier reports whether a login identifier should be treated as
// an email address rather than a username.
func isEmailIdentifier(identifier string) bool {
	return strings.Contains(identifier, "@")
}

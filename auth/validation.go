package auth

import (
	"strings"
	"unicode"
)

const minPasswordLength = 6

// ValidateEmail checks the general local@domain.tld shape: non-whitespace
// segments either side of a single "@" and at least one "." in the domain.
// Lowercasing for storage is the caller's job; no other normalization happens.
func ValidateEmail(email string) error {
	at := strings.Count(email, "@")
	if at != 1 {
		return NewError(KindInvalidInput, MsgInvalidEmail)
	}
	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" || domain == "" {
		return NewError(KindInvalidInput, MsgInvalidEmail)
	}
	if strings.ContainsFunc(email, unicode.IsSpace) {
		return NewError(KindInvalidInput, MsgInvalidEmail)
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return NewError(KindInvalidInput, MsgInvalidEmail)
	}
	return nil
}

// NormalizeEmail lowercases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the sign-up password policy. Rules are checked in
// a fixed order and the first violation wins: length, uppercase, lowercase,
// digit. No strength scoring beyond that.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return NewError(KindInvalidInput, "Password must be at least 6 characters long.")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return NewError(KindInvalidInput, "Password must contain at least one uppercase letter.")
	}
	if !hasLower {
		return NewError(KindInvalidInput, "Password must contain at least one lowercase letter.")
	}
	if !hasDigit {
		return NewError(KindInvalidInput, "Password must contain at least one number.")
	}
	return nil
}

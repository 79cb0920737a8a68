package identity

import (
	"unicode"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

// validatePassword checks the password against the store policy and returns
// one entry per violated rule.
func validatePassword(password string) []ErrorEntry {
	var entries []ErrorEntry

	if len(password) < passwordMinLength {
		entries = append(entries, ErrorEntry{
			Code:        "PasswordTooShort",
			Description: "Passwords must be at least 8 characters.",
		})
	}
	if len(password) > passwordMaxLength {
		entries = append(entries, ErrorEntry{
			Code:        "PasswordTooLong",
			Description: "Passwords must not exceed 128 characters.",
		})
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
		entries = append(entries, ErrorEntry{
			Code:        "PasswordRequiresUpper",
			Description: "Passwords must have at least one uppercase letter.",
		})
	}
	if !hasLower {
		entries = append(entries, ErrorEntry{
			Code:        "PasswordRequiresLower",
			Description: "Passwords must have at least one lowercase letter.",
		})
	}
	if !hasDigit {
		entries = append(entries, ErrorEntry{
			Code:        "PasswordRequiresDigit",
			Description: "Passwords must have at least one digit.",
		})
	}

	return entries
}

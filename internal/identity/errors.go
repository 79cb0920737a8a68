package identity

import (
	"errors"
	"strings"
)

// ErrorEntry is a machine-readable validation failure reported by the store.
type ErrorEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ValidationError carries one or more structured validation failures. Callers
// relay the entries verbatim instead of reinterpreting them.
type ValidationError struct {
	Entries []ErrorEntry
}

func (e *ValidationError) Error() string {
	descriptions := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		descriptions[i] = entry.Description
	}
	return "validation failed: " + strings.Join(descriptions, "; ")
}

// ErrTokenInvalid is returned when a reset token is unknown, expired or
// already consumed.
var ErrTokenInvalid = errors.New("reset token is invalid or expired")

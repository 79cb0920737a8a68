package accounts

import (
	"errors"

	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/pkg/models"
)

// Error codes used by the manager itself. Store validation failures keep
// their own codes and are relayed untouched.
const (
	CodeNotFound = "404"
	CodeConflict = "400"
	CodeInternal = "500"
)

// ErrorEntry is a structured operation failure.
type ErrorEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is the outcome of an account operation. Exactly one of Payload and
// Errors is populated; Delete succeeds with neither.
type Result struct {
	Payload *models.AccountView `json:"payload,omitempty"`
	Errors  []ErrorEntry        `json:"errors,omitempty"`
}

// Succeeded reports whether the operation completed without errors.
func (r Result) Succeeded() bool {
	return len(r.Errors) == 0
}

func success(view *models.AccountView) Result {
	return Result{Payload: view}
}

func failure(entries ...ErrorEntry) Result {
	return Result{Errors: entries}
}

func notFound() Result {
	return failure(ErrorEntry{Code: CodeNotFound, Description: "Account not found."})
}

func internalFault(description string) Result {
	return failure(ErrorEntry{Code: CodeInternal, Description: description})
}

// storeFailure converts a store error into result entries. Validation
// failures pass through verbatim; anything else becomes an internal fault.
func storeFailure(err error) Result {
	var ve *identity.ValidationError
	if errors.As(err, &ve) {
		entries := make([]ErrorEntry, len(ve.Entries))
		for i, e := range ve.Entries {
			entries[i] = ErrorEntry{Code: e.Code, Description: e.Description}
		}
		return failure(entries...)
	}
	return internalFault(err.Error())
}

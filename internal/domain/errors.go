package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrCheckoutFailed     = errors.New("checkout failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMissingToken       = errors.New("no access token in response")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrItemNotFound       = errors.New("cart item not found")
)

// ValidationError carries a display message and, when the server sent them,
// per-field messages. It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string][]string
	// Cause is the sentinel of the failed operation, e.g. ErrRegistrationFailed.
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed || (e.Cause != nil && target == e.Cause)
}

// FailureError is a failed write operation with the message to show the user.
// It matches its Reason with errors.Is and unwraps to the underlying cause.
type FailureError struct {
	Reason  error
	Message string
	Err     error
}

func (e *FailureError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason.Error()
}

func (e *FailureError) Is(target error) bool { return target == e.Reason }

func (e *FailureError) Unwrap() error { return e.Err }

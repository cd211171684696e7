package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type ErrorKind int

const (
	// NetworkFailure: no response at all, including timeouts.
	NetworkFailure ErrorKind = iota + 1
	// AuthorizationFailure: 401.
	AuthorizationFailure
	// ValidationFailure: any other 4xx.
	ValidationFailure
	// ServerFailure: 5xx, or a body that could not be understood.
	ServerFailure
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case AuthorizationFailure:
		return "authorization failure"
	case ValidationFailure:
		return "validation failure"
	case ServerFailure:
		return "server failure"
	default:
		return "unknown failure"
	}
}

var ErrUnrecognizedShape = errors.New("unrecognized response shape")

// APIError is returned for every failed gateway call.
type APIError struct {
	Kind           ErrorKind
	Method         string
	Path           string
	StatusCode     int
	Detail         string
	ErrorText      string
	NonFieldErrors []string
	FieldErrors    map[string][]string
	Err            error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s returned %d (%s): %s", e.Method, e.Path, e.StatusCode, e.Kind, e.Message())
}

func (e *APIError) Unwrap() error { return e.Err }

// Message picks the most specific human readable text the server sent.
func (e *APIError) Message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.ErrorText != "":
		return e.ErrorText
	case len(e.NonFieldErrors) > 0:
		return e.NonFieldErrors[0]
	}
	if len(e.FieldErrors) > 0 {
		names := make([]string, 0, len(e.FieldErrors))
		for name := range e.FieldErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		return names[0] + ": " + strings.Join(e.FieldErrors[names[0]], ", ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode != 0 {
		return http.StatusText(e.StatusCode)
	}
	return e.Kind.String()
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// AsAPIError unwraps err to an *APIError when there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return AuthorizationFailure
	case status >= 400 && status < 500:
		return ValidationFailure
	default:
		return ServerFailure
	}
}

// parseErrorPayload fills the error fields from a DRF style body:
// {detail?, error?, non_field_errors?, <field>?: string|string[]}.
// Anything it does not recognize is ignored.
func parseErrorPayload(apiErr *APIError, body []byte) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return
	}

	if body[0] == '[' {
		var list []string
		if err := json.Unmarshal(body, &list); err == nil {
			apiErr.NonFieldErrors = list
		}
		return
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return
	}
	for key, raw := range payload {
		messages, ok := decodeMessages(raw)
		if !ok || len(messages) == 0 {
			continue
		}
		switch key {
		case "detail":
			apiErr.Detail = messages[0]
		case "error":
			apiErr.ErrorText = messages[0]
		case "non_field_errors":
			apiErr.NonFieldErrors = messages
		default:
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = make(map[string][]string)
			}
			apiErr.FieldErrors[key] = messages
		}
	}
}

func decodeMessages(raw json.RawMessage) ([]string, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	return nil, false
}

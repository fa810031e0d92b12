package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is missing or invalid local input. It always blocks the network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransportError means the request could not be sent or the response could not be parsed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message is the server-supplied error text, if any.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registry %s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("registry %s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserMessage maps err to the text shown to the user. Validation and server
// errors carry their own message; anything else collapses to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var serr *ServerError
	if errors.As(err, &serr) && strings.TrimSpace(serr.Message) != "" {
		return serr.Message
	}
	return fallback
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

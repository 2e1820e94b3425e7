package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTransport wraps failures where no response was received.
var ErrTransport = errors.New("transport error")

// Error is a non-2xx response.
type Error struct {
	Status int
	// Message is the server-provided error text, if any.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
}

// Message returns the text to show a user for err: the server message when
// the service supplied one, fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsStatus reports whether err is a response error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// errorFromBody picks the first of error, detail or message that holds a
// non-empty string.
func errorFromBody(status int, body []byte) *Error {
	e := &Error{Status: status}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return e
	}
	for _, key := range []string{"error", "detail", "message"} {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			e.Message = s
			return e
		}
	}
	return e
}

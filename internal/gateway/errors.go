package gateway

import (
	"errors"
	"fmt"
)

// ErrUnreachable is wrapped by transport-level failures.
var ErrUnreachable = errors.New("game server unreachable")

// APIError is a non-2xx response. Body is the raw server payload, passed
// through uninterpreted for the caller to display.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	Body       []byte
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status of err if it wraps an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

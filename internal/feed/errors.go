package feed

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStatus marks a non-success HTTP response.
	ErrStatus = errors.New("unexpected status")

	// ErrUnauthorized marks a 401/403 from a credentialed feed.
	ErrUnauthorized = errors.New("credential rejected")
)

// StatusError is returned for responses the client will not retry.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Code, e.Body)
}

func (e *StatusError) Unwrap() []error {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return []error{ErrStatus, ErrUnauthorized}
	}
	return []error{ErrStatus}
}

// IsRetryable reports whether a status is worth another attempt.
func IsRetryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

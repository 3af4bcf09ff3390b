package bookstack

import (
	"errors"
	"fmt"
)

// AuthError indicates the API token pair was rejected (HTTP 401).
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return "BookStack authentication failed - check your token ID and secret"
}

// NotFoundError indicates a direct resource fetch returned HTTP 404.
// An empty search result is not a NotFoundError; callers get an absent
// value instead.
type NotFoundError struct {
	StatusCode int
	URL        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("BookStack resource not found: %s", e.URL)
}

// RateLimitError indicates the server rejected a request with HTTP 429.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return "BookStack API rate limit exceeded"
}

// APIError covers every other failure: non-2xx responses carry the status
// code and the parsed error body; transport-level failures (DNS, refused
// connection, timeout) carry a zero status code and wrap the underlying
// error.
type APIError struct {
	StatusCode int
	Message    string
	Body       map[string]any
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("BookStack network error: %v", e.Err)
	}
	return fmt.Sprintf("BookStack API error (HTTP %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthError reports whether err is an AuthError anywhere in its chain.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

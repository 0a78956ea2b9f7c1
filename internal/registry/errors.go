package registry

import (
	"errors"
	"fmt"
)

// ErrMissingToken is reported (wrapped in an AuthError) when no credential is available.
var ErrMissingToken = errors.New("no access token configured")

// AuthError reports a missing or rejected credential. It is never retried.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed (status %d): %v", e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError reports a transport failure (StatusCode 0) or a non-success response.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: bad status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

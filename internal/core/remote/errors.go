package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the remote answered but does not have the resource.
	ErrNotFound = errors.New("not found on remote")
	// ErrRateLimited means the remote refused the request for quota reasons.
	ErrRateLimited = errors.New("rate limited by remote")
	// ErrUnavailable covers transport failures, timeouts, 5xx responses and
	// an open circuit breaker.
	ErrUnavailable = errors.New("remote unavailable")
	// ErrNotText is returned by text fetches for content that is not UTF-8.
	ErrNotText = errors.New("content is not text")
)

// StatusError is an unexpected HTTP status from the remote.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Unwrap maps the status onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == 404:
		return ErrNotFound
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrUnavailable
	}
	return nil
}

// IsNotFound reports whether err is a structural miss rather than a
// transient failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

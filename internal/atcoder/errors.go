// Package atcoder talks to the contest site and its companion aggregator API.
// Every request goes through one colly collector per client so the login
// session cookie is shared, and through a per-host rate limiter.
package atcoder

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrTransient marks failures worth retrying: network errors, timeouts,
	// 429 and 5xx responses.
	ErrTransient = errors.New("transient remote failure")
	// ErrDecode marks a payload that could not be parsed. It is never
	// retried.
	ErrDecode = errors.New("malformed remote payload")
	// ErrNotFound marks a 404.
	ErrNotFound = errors.New("remote resource not found")
	// ErrLogin marks rejected credentials.
	ErrLogin = errors.New("login rejected")
)

// StatusError carries the HTTP status of a failed request.
type StatusError struct {
	URL    string
	Status int
	kind   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// Unwrap exposes the failure class (ErrTransient, ErrNotFound or nil).
func (e *StatusError) Unwrap() error {
	return e.kind
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classify maps a colly failure to the error taxonomy.
func classify(rawURL string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &StatusError{URL: rawURL, Status: status, kind: ErrTransient}
	case status == http.StatusNotFound:
		return &StatusError{URL: rawURL, Status: status, kind: ErrNotFound}
	case status >= http.StatusBadRequest:
		return &StatusError{URL: rawURL, Status: status}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, rawURL, err)
	}
	return fmt.Errorf("%s: %w", rawURL, err)
}

func decodeError(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDecode, what, err)
}

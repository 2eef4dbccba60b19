package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a client constructed with missing settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrHTTPStatus reports a storefront response with a non-2xx status.
	ErrHTTPStatus = errors.New("storefront HTTP error")
)

// StatusError carries the status of a failed storefront response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrHTTPStatus, e.Status)
}

// Unwrap lets errors.Is match ErrHTTPStatus.
func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

package uploader

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAborted marks transfers stopped by their context. It is distinct
	// from network and server failures.
	ErrAborted = errors.New("upload aborted")

	ErrNotFound        = errors.New("not found")
	ErrInvalidOffset   = errors.New("server returned an invalid upload offset")
	ErrMissingLocation = errors.New("server did not return an upload location")
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Message)
}

// Is matches ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// IsAbort reports whether err resulted from cancelling the transfer.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted)
}

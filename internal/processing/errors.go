package processing

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/transfer"
)

var (
	ErrNotActive = errors.New("no active processing job")
	ErrCancelled = errors.New("processing cancelled")
	ErrShutdown  = errors.New("processing interrupted by shutdown")
)

// MapHTTPStatus maps processing, transfer, and tracking errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotActive):
		return http.StatusNotFound
	case errors.Is(err, ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, transfer.ErrNotFound), errors.Is(err, transfer.ErrIncomplete):
		return transfer.MapHTTPStatus(err)
	case errors.Is(err, tracking.ErrNotFound),
		errors.Is(err, tracking.ErrTerminal),
		errors.Is(err, tracking.ErrRegression):
		return tracking.MapHTTPStatus(err)
	default:
		return http.StatusInternalServerError
	}
}

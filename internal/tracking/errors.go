package tracking

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("status not found")
	ErrTerminal       = errors.New("status is terminal")
	ErrRegression     = errors.New("status regression")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrUnknownBackend = errors.New("unknown tracking backend")
)

// MapHTTPStatus maps tracking errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTerminal), errors.Is(err, ErrRegression):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

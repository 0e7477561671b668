package transfer

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("upload not found")
	ErrTooLarge           = errors.New("upload exceeds maximum size")
	ErrInvalidLength      = errors.New("invalid upload length")
	ErrInvalidOffset      = errors.New("invalid upload offset")
	ErrOffsetMismatch     = errors.New("upload offset does not match current offset")
	ErrExceedsLength      = errors.New("request body exceeds declared upload length")
	ErrInvalidMetadata    = errors.New("invalid upload metadata")
	ErrInvalidContentType = errors.New("content type must be application/offset+octet-stream")
	ErrUnsupportedVersion = errors.New("unsupported tus version")
	ErrIncomplete         = errors.New("upload is incomplete")
)

// MapHTTPStatus maps transfer errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrOffsetMismatch), errors.Is(err, ErrIncomplete):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUnsupportedVersion):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrInvalidLength),
		errors.Is(err, ErrInvalidOffset),
		errors.Is(err, ErrExceedsLength),
		errors.Is(err, ErrInvalidMetadata):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

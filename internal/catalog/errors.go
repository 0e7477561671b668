package catalog

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("document requires an id and a title")
)

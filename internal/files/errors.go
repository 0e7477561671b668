package files

import "errors"

var (
	ErrCanceled     = errors.New("file selection canceled")
	ErrNoFile       = errors.New("no file selected")
	ErrInvalidShape = errors.New("unrecognized picker result")
)

package database

import "errors"

// ErrNotReady is returned when the connection is requested before startup completes.
var ErrNotReady = errors.New("database not ready")

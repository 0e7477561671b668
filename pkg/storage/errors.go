// Package storage provides blob storage for upload bytes and pinned content.
// It defines a System interface for storage operations and a filesystem
// implementation suitable for development and single-node deployments.
package storage

import "errors"

// Storage errors returned by System implementations.
var (
	// ErrNotFound indicates the requested key does not exist in storage.
	ErrNotFound = errors.New("storage: key not found")

	// ErrPermissionDenied indicates insufficient permissions to access the key.
	ErrPermissionDenied = errors.New("storage: permission denied")

	// ErrInvalidKey indicates the key is malformed or contains invalid characters.
	// This includes empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrOffsetMismatch indicates an append did not start at the current end of the blob.
	ErrOffsetMismatch = errors.New("storage: offset mismatch")
)

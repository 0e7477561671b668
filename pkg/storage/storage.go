package storage

import (
	"context"
	"io"

	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

// System defines the storage operations interface for blob storage.
type System interface {
	// Store saves data at the specified key, replacing existing contents.
	// Parent directories are created as needed.
	Store(ctx context.Context, key string, data []byte) error

	// StoreStream writes r to key atomically and returns the bytes written.
	StoreStream(ctx context.Context, key string, r io.Reader) (int64, error)

	// Create allocates an empty blob at key, truncating any existing contents.
	Create(ctx context.Context, key string) error

	// Append writes r to the end of the blob at key. The blob's current size
	// must equal offset or ErrOffsetMismatch is returned. Bytes read before a
	// failure stay written and are reported in the returned count.
	Append(ctx context.Context, key string, offset int64, r io.Reader) (int64, error)

	// Open returns a seekable reader for the blob at key.
	Open(ctx context.Context, key string) (io.ReadSeekCloser, error)

	// Size returns the current length of the blob at key.
	Size(ctx context.Context, key string) (int64, error)

	// Retrieve returns the data stored at the specified key.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete deletes the data at the specified key.
	// Returns nil if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Validate reports whether a key exists and is accessible.
	Validate(ctx context.Context, key string) (bool, error)

	// Path returns the absolute filesystem path for key.
	Path(ctx context.Context, key string) (string, error)

	// Start registers lifecycle hooks with the coordinator.
	// For filesystem storage, this creates the base directory.
	Start(lc *lifecycle.Coordinator) error
}

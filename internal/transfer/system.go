package transfer

import (
	"context"
	"io"
)

// Hooks are invoked as uploads finish or fail. Either may be nil.
type Hooks struct {
	// OnComplete runs once the final byte of an upload is stored.
	OnComplete func(ctx context.Context, u *Upload)

	// OnError runs when reading a request body fails mid-transfer.
	OnError func(ctx context.Context, u *Upload, err error)
}

// System manages resumable uploads.
type System interface {
	Create(ctx context.Context, cmd CreateCommand) (*Upload, error)
	Find(ctx context.Context, id string) (*Upload, error)

	// Append writes r at offset. Writes to the same upload are serialized and
	// offset must equal the current offset.
	Append(ctx context.Context, id string, offset int64, r io.Reader) (*Upload, error)

	// Terminate removes the upload's bytes and record.
	Terminate(ctx context.Context, id string) error

	// Open returns a reader over a complete upload's bytes.
	Open(ctx context.Context, id string) (*Upload, io.ReadSeekCloser, error)

	MaxSize() int64
}

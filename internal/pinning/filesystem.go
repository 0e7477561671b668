package pinning

import (
	"context"
	"io"
	"path"

	"github.com/JaimeStill/upload-lab/pkg/storage"
)

type filesystem struct {
	blobs  storage.System
	prefix string
}

// NewFilesystem stores pins in blobs under prefix/<cid>.
func NewFilesystem(blobs storage.System, prefix string) Backend {
	return &filesystem{blobs: blobs, prefix: prefix}
}

func (f *filesystem) Name() string {
	return BackendFilesystem
}

func (f *filesystem) Exists(ctx context.Context, cid string) (bool, error) {
	return f.blobs.Validate(ctx, path.Join(f.prefix, cid))
}

func (f *filesystem) Put(ctx context.Context, cid string, r io.ReadSeeker, size int64) error {
	_, err := f.blobs.StoreStream(ctx, path.Join(f.prefix, cid), r)
	return err
}

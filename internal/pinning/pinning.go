// Package pinning stores upload bytes in a content-addressed store keyed by
// their CIDv1. Backends are pluggable: the local blob store or an
// S3-compatible bucket.
package pinning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JaimeStill/upload-lab/pkg/storage"
)

// Pin describes content retained by a backend.
type Pin struct {
	CID      string    `json:"cid"`
	Bytes    int64     `json:"bytes"`
	PinnedAt time.Time `json:"pinned_at"`
}

// Backend persists content under its identifier.
type Backend interface {
	Name() string
	Exists(ctx context.Context, cid string) (bool, error)
	Put(ctx context.Context, cid string, r io.ReadSeeker, size int64) error
}

// System computes identifiers and retains content.
type System interface {
	Pin(ctx context.Context, r io.ReadSeeker) (*Pin, error)
	Exists(ctx context.Context, cid string) (bool, error)
}

type pinner struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a System over the backend selected by cfg. blobs serves the
// filesystem backend and may be nil when s3 is configured.
func New(ctx context.Context, cfg *Config, blobs storage.System, logger *slog.Logger) (System, error) {
	var backend Backend

	switch cfg.Backend {
	case BackendFilesystem:
		if blobs == nil {
			return nil, fmt.Errorf("filesystem backend requires storage")
		}
		backend = NewFilesystem(blobs, cfg.Prefix)
	case BackendS3:
		b, err := NewS3(ctx, &cfg.S3, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}

	return NewWithBackend(backend, logger), nil
}

// NewWithBackend creates a System over an explicit backend.
func NewWithBackend(backend Backend, logger *slog.Logger) System {
	return &pinner{
		backend: backend,
		logger:  logger.With("system", "pinning", "backend", backend.Name()),
	}
}

// Pin hashes r, rewinds it, and stores the content unless the backend
// already holds it.
func (p *pinner) Pin(ctx context.Context, r io.ReadSeeker) (*Pin, error) {
	cid, size, err := ComputeCID(r)
	if err != nil {
		return nil, err
	}

	exists, err := p.backend.Exists(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("check pin %s: %w", cid, err)
	}

	if !exists {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind content: %w", err)
		}
		if err := p.backend.Put(ctx, cid, r, size); err != nil {
			return nil, fmt.Errorf("store pin %s: %w", cid, err)
		}
		p.logger.Info("content pinned", "cid", cid, "bytes", size)
	} else {
		p.logger.Debug("content already pinned", "cid", cid)
	}

	return &Pin{
		CID:      cid,
		Bytes:    size,
		PinnedAt: time.Now().UTC(),
	}, nil
}

func (p *pinner) Exists(ctx context.Context, cid string) (bool, error) {
	if !ValidCID(cid) {
		return false, ErrInvalidCID
	}
	return p.backend.Exists(ctx, cid)
}

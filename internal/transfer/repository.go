package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/upload-lab/pkg/storage"
)

type repo struct {
	blobs   storage.System
	maxSize int64
	hooks   Hooks
	logger  *slog.Logger

	mu      sync.Mutex
	uploads map[string]*Upload
	locks   map[string]*sync.Mutex
}

// New creates a transfer system storing bytes in blobs. Uploads whose
// declared length exceeds maxSize are rejected at creation.
func New(blobs storage.System, maxSize int64, hooks Hooks, logger *slog.Logger) System {
	return &repo{
		blobs:   blobs,
		maxSize: maxSize,
		hooks:   hooks,
		logger:  logger.With("system", "transfer"),
		uploads: make(map[string]*Upload),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *repo) MaxSize() int64 {
	return r.maxSize
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Upload, error) {
	if cmd.Length < 0 {
		return nil, ErrInvalidLength
	}
	if cmd.Length > r.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, cmd.Length, r.maxSize)
	}

	meta := cmd.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	filename := ResolveFilename(cmd.Filename, meta)
	u := &Upload{
		ID:         uuid.NewString(),
		Length:     cmd.Length,
		Metadata:   maps.Clone(meta),
		Filename:   filename,
		StorageKey: storageKey(filename),
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.blobs.Create(ctx, u.StorageKey); err != nil {
		return nil, fmt.Errorf("allocate upload: %w", err)
	}
	if err := r.save(ctx, u); err != nil {
		r.blobs.Delete(ctx, u.StorageKey)
		return nil, err
	}

	r.mu.Lock()
	r.uploads[u.ID] = u
	r.mu.Unlock()

	r.logger.Info("upload created", "id", u.ID, "length", u.Length, "filename", u.Filename)

	if u.Complete() {
		r.complete(ctx, u)
	}

	return clone(u), nil
}

func (r *repo) Find(ctx context.Context, id string) (*Upload, error) {
	u, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(u), nil
}

func (r *repo) Append(ctx context.Context, id string, offset int64, body io.Reader) (*Upload, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	u, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if offset != u.Offset {
		return nil, fmt.Errorf("%w: got %d, at %d", ErrOffsetMismatch, offset, u.Offset)
	}

	wasComplete := u.Complete()

	n, appendErr := r.blobs.Append(ctx, u.StorageKey, u.Offset, io.LimitReader(body, u.Remaining()))

	// Find reads cached uploads under r.mu without holding the upload lock.
	r.mu.Lock()
	u.Offset += n
	r.mu.Unlock()

	if n > 0 {
		if err := r.save(ctx, u); err != nil {
			return nil, err
		}
	}

	if appendErr != nil {
		if errors.Is(appendErr, storage.ErrOffsetMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrOffsetMismatch, appendErr)
		}
		r.logger.Error("upload transfer failed", "id", id, "offset", u.Offset, "error", appendErr)
		if r.hooks.OnError != nil {
			r.hooks.OnError(context.WithoutCancel(ctx), clone(u), appendErr)
		}
		return clone(u), fmt.Errorf("append %s: %w", id, appendErr)
	}

	var overflow error
	var extra [1]byte
	if k, _ := io.ReadFull(body, extra[:]); k > 0 {
		overflow = fmt.Errorf("%w: upload %s declared %d bytes", ErrExceedsLength, id, u.Length)
	}

	if !wasComplete && u.Complete() {
		r.complete(ctx, u)
	}

	return clone(u), overflow
}

func (r *repo) Terminate(ctx context.Context, id string) error {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	u, err := r.load(ctx, id)
	if err != nil {
		return err
	}

	if err := r.blobs.Delete(ctx, u.StorageKey); err != nil {
		return fmt.Errorf("delete upload data: %w", err)
	}
	if err := r.blobs.Delete(ctx, infoKey(id)); err != nil {
		return fmt.Errorf("delete upload info: %w", err)
	}

	r.mu.Lock()
	delete(r.uploads, id)
	delete(r.locks, id)
	r.mu.Unlock()

	r.logger.Info("upload terminated", "id", id)
	return nil
}

func (r *repo) Open(ctx context.Context, id string) (*Upload, io.ReadSeekCloser, error) {
	l := r.lock(id)
	l.Lock()
	defer l.Unlock()

	u, err := r.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !u.Complete() {
		return nil, nil, fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, u.Offset, u.Length)
	}

	rc, err := r.blobs.Open(ctx, u.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open upload data: %w", err)
	}
	return clone(u), rc, nil
}

func (r *repo) complete(ctx context.Context, u *Upload) {
	r.logger.Info("upload complete", "id", u.ID, "bytes", u.Length, "key", u.StorageKey)
	if r.hooks.OnComplete != nil {
		r.hooks.OnComplete(context.WithoutCancel(ctx), clone(u))
	}
}

func (r *repo) lock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// load returns the cached upload or restores it from its sidecar. A restored
// offset is reconciled against the bytes actually on disk.
func (r *repo) load(ctx context.Context, id string) (*Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	u, ok := r.uploads[id]
	r.mu.Unlock()
	if ok {
		return u, nil
	}

	data, err := r.blobs.Retrieve(ctx, infoKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read upload info: %w", err)
	}

	var restored Upload
	if err := json.Unmarshal(data, &restored); err != nil {
		return nil, fmt.Errorf("decode upload info: %w", err)
	}

	size, err := r.blobs.Size(ctx, restored.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat upload data: %w", err)
	}
	if size != restored.Offset {
		r.logger.Warn("reconciled upload offset", "id", id, "recorded", restored.Offset, "on_disk", size)
		restored.Offset = min(size, restored.Length)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.uploads[id]; ok {
		return cached, nil
	}
	r.uploads[id] = &restored
	r.logger.Info("upload restored", "id", id, "offset", restored.Offset, "length", restored.Length)
	return &restored, nil
}

func (r *repo) save(ctx context.Context, u *Upload) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode upload info: %w", err)
	}
	if err := r.blobs.Store(ctx, infoKey(u.ID), data); err != nil {
		return fmt.Errorf("write upload info: %w", err)
	}
	return nil
}

func clone(u *Upload) *Upload {
	c := *u
	c.Metadata = maps.Clone(u.Metadata)
	return &c
}

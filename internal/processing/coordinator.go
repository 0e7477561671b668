package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/JaimeStill/upload-lab/internal/pinning"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/transfer"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

const pdfType = "application/pdf"

type job struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

type coordinator struct {
	transfers  transfer.System
	store      tracking.Store
	pins       pinning.System
	delay      time.Duration
	operations []string
	logger     *slog.Logger

	mu     sync.Mutex
	base   context.Context
	active map[string]*job
	wg     sync.WaitGroup
}

// New creates a processing System. Jobs run under context.Background until
// Start binds them to a lifecycle coordinator.
func New(transfers transfer.System, store tracking.Store, pins pinning.System, cfg *Config, logger *slog.Logger) System {
	return &coordinator{
		transfers:  transfers,
		store:      store,
		pins:       pins,
		delay:      cfg.DelayDuration(),
		operations: slices.Clone(cfg.Operations),
		logger:     logger.With("system", "processing"),
		base:       context.Background(),
		active:     make(map[string]*job),
	}
}

func (c *coordinator) Start(lc *lifecycle.Coordinator) error {
	c.mu.Lock()
	c.base = lc.Context()
	c.mu.Unlock()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.logger.Info("waiting for processing jobs")
		c.wg.Wait()
		c.logger.Info("processing jobs stopped")
	})

	return nil
}

func (c *coordinator) Pin(ctx context.Context, uploadID string) (*PinResult, error) {
	upload, rc, err := c.transfers.Open(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if r, err := c.store.GetResult(ctx, uploadID); err == nil && r.CID != "" {
		return &PinResult{UploadID: uploadID, CID: r.CID, Bytes: r.Size}, nil
	}

	fileType, err := detectType(rc)
	if err != nil {
		return nil, err
	}
	if _, err := rc.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	pin, err := c.pins.Pin(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("pin upload %s: %w", uploadID, err)
	}

	_, err = c.store.UpdateResult(ctx, uploadID, func(r *tracking.Result) {
		r.CID = pin.CID
		r.Size = pin.Bytes
		r.FileType = fileType
		if r.Filename == "" {
			r.Filename = upload.Filename
		}
	})
	if err != nil {
		return nil, fmt.Errorf("record pin: %w", err)
	}

	c.logger.Info("upload pinned", "upload_id", uploadID, "cid", pin.CID, "bytes", pin.Bytes)

	return &PinResult{UploadID: uploadID, CID: pin.CID, Bytes: pin.Bytes}, nil
}

func (c *coordinator) Process(ctx context.Context, uploadID string) (*tracking.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.base.Err() != nil {
		return nil, ErrShutdown
	}

	if _, ok := c.active[uploadID]; ok {
		return c.store.GetStatus(ctx, uploadID)
	}

	current, err := c.store.GetStatus(ctx, uploadID)
	switch {
	case err == nil:
		switch current.Stage {
		case tracking.StageCompleted:
			return current, nil
		case tracking.StageFailed:
			return nil, fmt.Errorf("%w: upload %s failed", tracking.ErrTerminal, uploadID)
		case tracking.StageProcessing:
			c.logger.Warn("resuming orphaned processing job", "upload_id", uploadID)
			c.launch(uploadID)
			return current, nil
		}
	case errors.Is(err, tracking.ErrNotFound):
	default:
		return nil, err
	}

	err = c.store.SetStatus(ctx, tracking.Status{
		UploadID: uploadID,
		Stage:    tracking.StageProcessing,
		SubStage: "ocr",
		Progress: 10,
		Message:  "Processing document",
	})
	if err != nil {
		return nil, err
	}

	c.launch(uploadID)
	c.logger.Info("processing started", "upload_id", uploadID)

	return c.store.GetStatus(ctx, uploadID)
}

func (c *coordinator) Cancel(ctx context.Context, uploadID string) error {
	c.mu.Lock()
	j, ok := c.active[uploadID]
	c.mu.Unlock()

	if !ok {
		return ErrNotActive
	}

	j.cancel(ErrCancelled)

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch must be called with c.mu held.
func (c *coordinator) launch(uploadID string) {
	jobCtx, cancel := context.WithCancelCause(c.base)
	j := &job{cancel: cancel, done: make(chan struct{})}
	c.active[uploadID] = j
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer close(j.done)
		defer cancel(nil)

		c.run(jobCtx, uploadID)

		c.mu.Lock()
		delete(c.active, uploadID)
		c.mu.Unlock()
	}()
}

func (c *coordinator) run(ctx context.Context, uploadID string) {
	logger := c.logger.With("upload_id", uploadID)

	pageCount, fileType, err := c.inspect(ctx, uploadID)
	if err != nil {
		if ctx.Err() != nil {
			c.abort(ctx, uploadID)
			return
		}
		c.fail(ctx, uploadID, err)
		return
	}

	err = c.store.SetStatus(ctx, tracking.Status{
		UploadID: uploadID,
		Stage:    tracking.StageProcessing,
		SubStage: "ocr",
		Progress: 50,
		Message:  "Extracting content",
	})
	if err != nil {
		if ctx.Err() != nil {
			c.abort(ctx, uploadID)
			return
		}
		logger.Error("record progress failed", "error", err)
		return
	}

	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.abort(ctx, uploadID)
		return
	case <-timer.C:
	}

	record := context.WithoutCancel(ctx)

	_, err = c.store.UpdateResult(record, uploadID, func(r *tracking.Result) {
		r.UploadID = uploadID
		r.SupportedOperations = slices.Clone(c.operations)
		r.PreviewChunks = []string{}
		if pageCount > 0 {
			r.PageCount = pageCount
		}
		if fileType != "" {
			r.FileType = fileType
		}
	})
	if err != nil {
		c.fail(record, uploadID, fmt.Errorf("record result: %w", err))
		return
	}

	err = c.store.SetStatus(record, tracking.Status{
		UploadID: uploadID,
		Stage:    tracking.StageCompleted,
		SubStage: "complete",
		Progress: 100,
		Message:  "Processing complete",
	})
	if err != nil {
		logger.Error("record completion failed", "error", err)
		return
	}

	logger.Info("processing completed", "page_count", pageCount, "file_type", fileType)
}

// inspect sniffs the upload's content type and counts PDF pages. Unknown or
// incomplete uploads have nothing to inspect.
func (c *coordinator) inspect(ctx context.Context, uploadID string) (int, string, error) {
	_, rc, err := c.transfers.Open(ctx, uploadID)
	if errors.Is(err, transfer.ErrNotFound) || errors.Is(err, transfer.ErrIncomplete) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	defer rc.Close()

	fileType, err := detectType(rc)
	if err != nil {
		return 0, "", err
	}

	if fileType != pdfType {
		return 0, fileType, nil
	}

	if _, err := rc.Seek(0, io.SeekStart); err != nil {
		return 0, "", fmt.Errorf("rewind upload: %w", err)
	}

	pages, err := api.PageCount(rc, model.NewDefaultConfiguration())
	if err != nil {
		c.logger.Warn("pdf page count failed", "upload_id", uploadID, "error", err)
		return 0, fileType, nil
	}

	return pages, fileType, nil
}

func (c *coordinator) abort(ctx context.Context, uploadID string) {
	cause := ErrShutdown
	if errors.Is(context.Cause(ctx), ErrCancelled) {
		cause = ErrCancelled
	}
	c.fail(ctx, uploadID, cause)
}

func (c *coordinator) fail(ctx context.Context, uploadID string, cause error) {
	message := "Processing failed"
	if errors.Is(cause, ErrCancelled) || errors.Is(cause, ErrShutdown) {
		message = cause.Error()
	}

	err := c.store.SetStatus(context.WithoutCancel(ctx), tracking.Status{
		UploadID: uploadID,
		Stage:    tracking.StageFailed,
		SubStage: "ocr",
		Progress: 0,
		Message:  message,
		Error:    cause.Error(),
	})
	if err != nil {
		c.logger.Error("record failure failed", "upload_id", uploadID, "error", err)
		return
	}

	c.logger.Warn("processing failed", "upload_id", uploadID, "error", cause)
}

func detectType(r io.Reader) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(mediaType), nil
}

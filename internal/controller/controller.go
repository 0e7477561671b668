// Package controller drives a single document upload from validation to a
// synced catalog entry: validate, check duplicates, upload, pin, process
// and poll status, reporting progress and state through hooks.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/files"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/uploader"
)

// ReadyMessage is the toast shown when a document finishes processing.
const ReadyMessage = "Document ready. Open chat to start learning."

// DefaultPollInterval is the delay between status polls.
const DefaultPollInterval = 500 * time.Millisecond

// Client is the server surface a session needs.
type Client interface {
	Upload(ctx context.Context, desc files.Descriptor, body io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error)
	Resume(ctx context.Context, uploadID string, body io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error)
	Pin(ctx context.Context, uploadID string) (*uploader.PinResult, error)
	Process(ctx context.Context, uploadID string) error
	Status(ctx context.Context, uploadID string) (*tracking.Status, error)
	Result(ctx context.Context, uploadID string) (*tracking.Result, error)
}

// Library is the document catalog a session records into.
type Library interface {
	Find(id string) (*catalog.Document, error)
	FindDuplicate(title string, size int64) (*catalog.Document, bool, error)
	Save(doc catalog.Document) error
	Update(id string, fn func(*catalog.Document)) (*catalog.Document, error)
	Touch(id string, at time.Time) (*catalog.Document, error)
	Delete(id string) error
}

// Hooks observe a session. Every hook is optional and runs on the
// session's goroutine.
type Hooks struct {
	OnState    func(s *Session, from, to State)
	OnProgress func(s *Session, p uploader.Progress)
	OnToast    func(s *Session, message string)
	OnBanner   func(s *Session, message string)
	OnOpen     func(s *Session, doc catalog.Document)
}

// Config configures a Controller. Zero values select defaults.
type Config struct {
	Policy       Policy
	PollInterval time.Duration
	Prompter     Prompter
	Telemetry    Telemetry
	Hooks        Hooks

	// Open returns the bytes behind a descriptor. Defaults to opening the
	// descriptor's file:// path.
	Open func(files.Descriptor) (io.ReadSeekCloser, error)
	Now  func() time.Time
}

// Controller starts upload sessions.
type Controller struct {
	client  Client
	library Library
	policy  Policy
	poll    time.Duration
	prompt  Prompter
	track   Telemetry
	hooks   Hooks
	open    func(files.Descriptor) (io.ReadSeekCloser, error)
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Controller.
func New(client Client, library Library, cfg Config, logger *slog.Logger) *Controller {
	c := &Controller{
		client:  client,
		library: library,
		policy:  cfg.Policy,
		poll:    cfg.PollInterval,
		prompt:  cfg.Prompter,
		track:   cfg.Telemetry,
		hooks:   cfg.Hooks,
		open:    cfg.Open,
		now:     cfg.Now,
		logger:  logger.With("system", "controller"),
	}

	if c.policy.MaxSize <= 0 {
		c.policy = DefaultPolicy()
	}
	if c.poll <= 0 {
		c.poll = DefaultPollInterval
	}
	if c.prompt == nil {
		c.prompt = Always(OpenExisting)
	}
	if c.track == nil {
		c.track = NewLogTelemetry(logger)
	}
	if c.open == nil {
		c.open = openFile
	}
	if c.now == nil {
		c.now = time.Now
	}

	return c
}

// Start launches a session for desc. The session ends when its work is
// done, it is canceled, or ctx is done.
func (c *Controller) Start(ctx context.Context, desc files.Descriptor) *Session {
	return c.launch(ctx, desc, c.run)
}

// Run starts a session and waits for it to end.
func (c *Controller) Run(ctx context.Context, desc files.Descriptor) (*Outcome, error) {
	return c.Start(ctx, desc).Wait()
}

// StartResume launches a session that continues the interrupted upload of
// catalog document docID from the server's offset. desc must describe the
// same file.
func (c *Controller) StartResume(ctx context.Context, docID string, desc files.Descriptor) *Session {
	return c.launch(ctx, desc, func(ctx context.Context, s *Session) (*Outcome, error) {
		return c.resume(ctx, s, docID)
	})
}

// Resume starts a resume session and waits for it to end.
func (c *Controller) Resume(ctx context.Context, docID string, desc files.Descriptor) (*Outcome, error) {
	return c.StartResume(ctx, docID, desc).Wait()
}

type sessionFunc func(ctx context.Context, s *Session) (*Outcome, error)

type sendFunc func(ctx context.Context, body io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error)

func (c *Controller) launch(ctx context.Context, desc files.Descriptor, fn sessionFunc) *Session {
	ctx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		ID:         uuid.NewString(),
		Descriptor: desc,
		state:      StateIdle,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel(nil)
		s.outcome, s.err = fn(ctx, s)
	}()

	return s
}

func (c *Controller) run(ctx context.Context, s *Session) (*Outcome, error) {
	desc := s.Descriptor

	kind, outcome, err := c.validate(ctx, s)
	if err != nil {
		return outcome, err
	}

	existing, dup, err := c.library.FindDuplicate(desc.Name, desc.Size)
	if err != nil {
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("check duplicates: %w", err)
	}
	if dup {
		choice, err := c.prompt.ResolveDuplicate(ctx, desc, *existing)
		if err != nil {
			c.transition(s, StateIdle)
			if ctx.Err() != nil {
				return &Outcome{State: StateIdle}, ErrCanceled
			}
			return nil, fmt.Errorf("resolve duplicate: %w", err)
		}

		if choice == OpenExisting {
			doc, err := c.library.Touch(existing.ID, c.now())
			if err != nil {
				c.transition(s, StateIdle)
				return nil, fmt.Errorf("open existing document: %w", err)
			}
			c.track.Track(ctx, EventDuplicateOpened, slog.String("document", doc.ID))
			if c.hooks.OnOpen != nil {
				c.hooks.OnOpen(s, *doc)
			}
			if err := c.transition(s, StateIdle); err != nil {
				return nil, err
			}
			return &Outcome{State: StateIdle, Document: doc, Existing: true}, nil
		}

		c.track.Track(ctx, EventDuplicateIgnored, slog.String("document", existing.ID))
	}

	if ctx.Err() != nil {
		c.transition(s, StateIdle)
		return &Outcome{State: StateIdle}, ErrCanceled
	}

	body, err := c.open(desc)
	if err != nil {
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("open %s: %w", desc.Name, err)
	}
	defer body.Close()

	if err := c.transition(s, StateUploading); err != nil {
		return nil, err
	}

	mimeType := desc.MIMEType
	if mimeType == "" {
		mimeType = MIMEType(kind)
	}

	doc := catalog.Document{
		ID:         uuid.NewString(),
		Title:      desc.Name,
		UploadDate: c.now(),
		Status:     catalog.StatusProcessing,
		Type:       kind,
		FileURI:    desc.URI,
		FileSize:   desc.Size,
		MIMEType:   mimeType,
	}
	if err := c.library.Save(doc); err != nil {
		return c.fail(ctx, s, "", fmt.Errorf("save document: %w", err))
	}

	c.track.Track(ctx, EventStarted,
		slog.String("document", doc.ID),
		slog.String("type", kind),
		slog.Int64("size", desc.Size),
	)

	return c.execute(ctx, s, doc.ID, body, true, func(ctx context.Context, body io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error) {
		return c.client.Upload(ctx, desc, body, opts)
	})
}

func (c *Controller) resume(ctx context.Context, s *Session, docID string) (*Outcome, error) {
	desc := s.Descriptor

	if _, outcome, err := c.validate(ctx, s); err != nil {
		return outcome, err
	}

	doc, err := c.library.Find(docID)
	if err != nil {
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("find document: %w", err)
	}
	switch {
	case doc.UploadID == "":
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("%w: %s has no server upload", ErrNotResumable, doc.ID)
	case doc.Status == catalog.StatusSynced:
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("%w: %s is already synced", ErrNotResumable, doc.ID)
	case doc.FileSize != desc.Size:
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("%w: %s is %d bytes, file is %d", ErrNotResumable, doc.ID, doc.FileSize, desc.Size)
	}

	if ctx.Err() != nil {
		c.transition(s, StateIdle)
		return &Outcome{State: StateIdle}, ErrCanceled
	}

	body, err := c.open(desc)
	if err != nil {
		c.transition(s, StateIdle)
		return nil, fmt.Errorf("open %s: %w", desc.Name, err)
	}
	defer body.Close()

	if err := c.transition(s, StateUploading); err != nil {
		return nil, err
	}

	if _, err := c.library.Update(doc.ID, func(d *catalog.Document) {
		d.Status = catalog.ProjectStatus(tracking.StageProcessing)
	}); err != nil {
		return c.fail(ctx, s, doc.ID, fmt.Errorf("update document: %w", err))
	}

	c.track.Track(ctx, EventResumed,
		slog.String("document", doc.ID),
		slog.String("upload", doc.UploadID),
	)

	uploadID := doc.UploadID
	return c.execute(ctx, s, doc.ID, body, false, func(ctx context.Context, body io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error) {
		return c.client.Resume(ctx, uploadID, body, opts)
	})
}

// validate moves s to validating and applies the policy. A rejection ends
// the session in the rejected state.
func (c *Controller) validate(ctx context.Context, s *Session) (string, *Outcome, error) {
	desc := s.Descriptor

	if err := c.transition(s, StateValidating); err != nil {
		return "", nil, err
	}

	kind, err := c.policy.Validate(desc)
	if err == nil {
		return kind, nil, nil
	}

	var verr *ValidationError
	errors.As(err, &verr)

	if err := c.transition(s, StateRejected); err != nil {
		return "", nil, err
	}
	c.banner(s, verr.Message)
	c.track.Track(ctx, EventRejected,
		slog.String("reason", verr.Reason),
		slog.String("name", desc.Name),
		slog.Int64("size", desc.Size),
		slog.String("mime_type", desc.MIMEType),
	)
	c.logger.Info("upload rejected", "session", s.ID, "file", desc.Name, "reason", verr.Reason)
	return "", &Outcome{State: StateRejected}, err
}

// execute runs the pipeline for an uploading session and records the
// outcome on the catalog document. A canceled session deletes the document
// when discard is set and otherwise leaves it resumable.
func (c *Controller) execute(ctx context.Context, s *Session, docID string, body io.ReadSeeker, discard bool, send sendFunc) (*Outcome, error) {
	result, status, err := c.pipeline(ctx, s, docID, body, send)
	if err != nil {
		if ctx.Err() != nil {
			return c.canceled(ctx, s, docID, discard)
		}
		return c.fail(ctx, s, docID, err)
	}

	updated, err := c.library.Update(docID, func(d *catalog.Document) {
		d.Status = catalog.ProjectStatus(status.Stage)
		d.CID = result.CID
		d.PageCount = result.PageCount
		if result.FileType != "" {
			d.MIMEType = result.FileType
		}
	})
	if err != nil {
		return c.fail(ctx, s, docID, fmt.Errorf("update document: %w", err))
	}

	if err := c.transition(s, StateReady); err != nil {
		return nil, err
	}
	c.toast(s, ReadyMessage)
	c.track.Track(ctx, EventCompleted,
		slog.String("document", docID),
		slog.String("cid", updated.CID),
		slog.Int("pages", updated.PageCount),
	)
	c.logger.Info("document ready", "session", s.ID, "document", docID, "cid", updated.CID)

	return &Outcome{State: StateReady, Document: updated}, nil
}

// pipeline runs transfer, pin and process, returning the result and the
// terminal status.
func (c *Controller) pipeline(ctx context.Context, s *Session, docID string, body io.ReadSeeker, send sendFunc) (*tracking.Result, *tracking.Status, error) {
	s.markStarted(c.now())

	up, err := send(ctx, body, uploader.Options{
		OnCreated: func(u *uploader.Upload) {
			c.record(docID, func(d *catalog.Document) { d.UploadID = u.ID })
		},
		OnProgress: func(p uploader.Progress) {
			s.setProgress(p)
			if c.hooks.OnProgress != nil {
				c.hooks.OnProgress(s, p)
			}
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upload: %w", err)
	}

	c.record(docID, func(d *catalog.Document) { d.UploadID = up.ID })

	if err := c.transition(s, StatePinning); err != nil {
		return nil, nil, err
	}

	pin, err := c.client.Pin(ctx, up.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("pin: %w", err)
	}
	c.record(docID, func(d *catalog.Document) { d.CID = pin.CID })

	if err := c.transition(s, StateProcessing); err != nil {
		return nil, nil, err
	}

	if err := c.client.Process(ctx, up.ID); err != nil {
		return nil, nil, fmt.Errorf("process: %w", err)
	}

	status, err := c.await(ctx, up.ID)
	if err != nil {
		return nil, nil, err
	}

	result, err := c.client.Result(ctx, up.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("result: %w", err)
	}
	if result.CID == "" {
		result.CID = pin.CID
	}
	return result, status, nil
}

// await polls status until processing reaches a terminal stage. A 404
// means the server has not recorded a status yet.
func (c *Controller) await(ctx context.Context, uploadID string) (*tracking.Status, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		status, err := c.client.Status(ctx, uploadID)
		switch {
		case errors.Is(err, uploader.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("status: %w", err)
		case catalog.ProjectStatus(status.Stage) == catalog.StatusSynced:
			return status, nil
		case catalog.ProjectStatus(status.Stage) == catalog.StatusError:
			msg := status.Error
			if msg == "" {
				msg = status.Message
			}
			return nil, fmt.Errorf("%w: %s", ErrProcessingFailed, msg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", uploader.ErrAborted, context.Cause(ctx))
		case <-ticker.C:
		}
	}
}

// record applies fn to the session's document. Failures are logged; the
// document is reconciled when the session ends.
func (c *Controller) record(docID string, fn func(*catalog.Document)) {
	if _, err := c.library.Update(docID, fn); err != nil {
		c.logger.Warn("update document", "document", docID, "error", err)
	}
}

// canceled resets to idle without a banner. Bytes already sent to the
// server are left in place.
func (c *Controller) canceled(ctx context.Context, s *Session, docID string, discard bool) (*Outcome, error) {
	if discard {
		if err := c.library.Delete(docID); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			c.logger.Warn("remove canceled document", "document", docID, "error", err)
		}
	} else {
		c.record(docID, func(d *catalog.Document) {
			d.Status = catalog.ProjectStatus(tracking.StageFailed)
		})
	}

	from := s.State()
	if err := c.transition(s, StateCanceled); err != nil {
		return nil, err
	}
	c.track.Track(context.WithoutCancel(ctx), EventCanceled,
		slog.String("document", docID),
		slog.String("stage", string(from)),
		slog.Int64("bytes_uploaded", s.Progress().BytesUploaded),
	)
	if err := c.transition(s, StateIdle); err != nil {
		return nil, err
	}
	return &Outcome{State: StateCanceled}, ErrCanceled
}

func (c *Controller) fail(ctx context.Context, s *Session, docID string, cause error) (*Outcome, error) {
	var doc *catalog.Document
	if docID != "" {
		updated, err := c.library.Update(docID, func(d *catalog.Document) {
			d.Status = catalog.ProjectStatus(tracking.StageFailed)
		})
		if err != nil {
			c.logger.Warn("mark document failed", "document", docID, "error", err)
		}
		doc = updated
	}

	from := s.State()
	if err := c.transition(s, StateError); err != nil {
		return nil, errors.Join(cause, err)
	}
	c.banner(s, "Upload failed. Please try again.")
	c.track.Track(ctx, EventFailed,
		slog.String("document", docID),
		slog.String("stage", string(from)),
		slog.String("error", cause.Error()),
	)
	c.logger.Error("upload failed", "session", s.ID, "stage", from, "error", cause)

	return &Outcome{State: StateError, Document: doc}, cause
}

func (c *Controller) transition(s *Session, to State) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return transitionError(from, to)
	}
	s.state = to
	s.mu.Unlock()

	c.logger.Debug("session state", "session", s.ID, "from", from, "to", to)
	if c.hooks.OnState != nil {
		c.hooks.OnState(s, from, to)
	}
	return nil
}

func (c *Controller) toast(s *Session, msg string) {
	if c.hooks.OnToast != nil {
		c.hooks.OnToast(s, msg)
	}
}

func (c *Controller) banner(s *Session, msg string) {
	if c.hooks.OnBanner != nil {
		c.hooks.OnBanner(s, msg)
	}
}

func openFile(desc files.Descriptor) (io.ReadSeekCloser, error) {
	path, err := desc.Path()
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

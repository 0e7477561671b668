package controller_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/controller"
	"github.com/JaimeStill/upload-lab/internal/files"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/uploader"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type recorder struct {
	mu      sync.Mutex
	events  []controller.Event
	states  []controller.State
	banners []string
	toasts  []string
	opened  []catalog.Document
}

func (r *recorder) Track(_ context.Context, event controller.Event, _ ...slog.Attr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) hooks() controller.Hooks {
	return controller.Hooks{
		OnState: func(_ *controller.Session, _, to controller.State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, to)
		},
		OnToast: func(_ *controller.Session, msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.toasts = append(r.toasts, msg)
		},
		OnBanner: func(_ *controller.Session, msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.banners = append(r.banners, msg)
		},
		OnOpen: func(_ *controller.Session, doc catalog.Document) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opened = append(r.opened, doc)
		},
	}
}

func (r *recorder) hasEvent(e controller.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, e)
}

type fakeClient struct {
	mu       sync.Mutex
	calls    []string
	upload   func(ctx context.Context, desc files.Descriptor, opts uploader.Options) (*uploader.Upload, error)
	pin      func(ctx context.Context, id string) (*uploader.PinResult, error)
	process  func(ctx context.Context, id string) error
	statuses []*tracking.Status
	errs     []error
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) Upload(ctx context.Context, desc files.Descriptor, _ io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error) {
	f.record("upload")
	if f.upload != nil {
		return f.upload(ctx, desc, opts)
	}
	if opts.OnProgress != nil {
		opts.OnProgress(uploader.Progress{BytesUploaded: desc.Size, BytesTotal: desc.Size, Percent: 100})
	}
	return &uploader.Upload{ID: "up-1", Length: desc.Size, Offset: desc.Size}, nil
}

func (f *fakeClient) Resume(_ context.Context, id string, _ io.ReadSeeker, opts uploader.Options) (*uploader.Upload, error) {
	f.record("resume:" + id)
	if opts.OnProgress != nil {
		opts.OnProgress(uploader.Progress{BytesUploaded: 10, BytesTotal: 10, Percent: 100})
	}
	return &uploader.Upload{ID: id, Length: 10, Offset: 10}, nil
}

func (f *fakeClient) Pin(ctx context.Context, id string) (*uploader.PinResult, error) {
	f.record("pin")
	if f.pin != nil {
		return f.pin(ctx, id)
	}
	return &uploader.PinResult{UploadID: id, CID: "bafkreifake"}, nil
}

func (f *fakeClient) Process(ctx context.Context, id string) error {
	f.record("process")
	if f.process != nil {
		return f.process(ctx, id)
	}
	return nil
}

func (f *fakeClient) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, call)
}

func (f *fakeClient) Status(_ context.Context, id string) (*tracking.Status, error) {
	f.record("status")
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if len(f.statuses) > 1 {
		s := f.statuses[0]
		f.statuses = f.statuses[1:]
		return s, nil
	}
	if len(f.statuses) == 1 {
		return f.statuses[0], nil
	}
	return &tracking.Status{UploadID: id, Stage: tracking.StageCompleted, Progress: 100}, nil
}

func (f *fakeClient) Result(_ context.Context, id string) (*tracking.Result, error) {
	f.record("result")
	return &tracking.Result{UploadID: id, FileType: "application/pdf", PageCount: 3}, nil
}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func openMemory(desc files.Descriptor) (io.ReadSeekCloser, error) {
	return memFile{bytes.NewReader(make([]byte, desc.Size))}, nil
}

func newLibrary(t *testing.T) *catalog.Catalog {
	t.Helper()
	lib, err := catalog.Open("", testLogger())
	if err != nil {
		t.Fatalf("catalog.Open() failed: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func newController(client controller.Client, lib controller.Library, rec *recorder, prompter controller.Prompter) *controller.Controller {
	return controller.New(client, lib, controller.Config{
		PollInterval: 5 * time.Millisecond,
		Prompter:     prompter,
		Telemetry:    rec,
		Hooks:        rec.hooks(),
		Open:         openMemory,
	}, testLogger())
}

func pdfDescriptor(name string, size int64) files.Descriptor {
	return files.Descriptor{
		Name:     name,
		Size:     size,
		MIMEType: "application/pdf",
		URI:      "file:///tmp/" + name,
	}
}

func TestRun_RejectionMakesNoNetworkCalls(t *testing.T) {
	client := &fakeClient{}
	lib := newLibrary(t)
	rec := &recorder{}
	ctrl := newController(client, lib, rec, nil)

	tests := []files.Descriptor{
		{Name: "photo.png", Size: 100, MIMEType: "image/png", URI: "file:///photo.png"},
		pdfDescriptor("huge.pdf", controller.MaxDocumentSize+1),
	}

	for _, desc := range tests {
		outcome, err := ctrl.Run(context.Background(), desc)
		if !errors.Is(err, controller.ErrRejected) {
			t.Errorf("Run(%s) error = %v, want %v", desc.Name, err, controller.ErrRejected)
		}
		if outcome == nil || outcome.State != controller.StateRejected {
			t.Errorf("Run(%s) outcome = %+v, want rejected", desc.Name, outcome)
		}
	}

	if n := client.callCount(); n != 0 {
		t.Errorf("client calls = %d, want 0", n)
	}
	if !rec.hasEvent(controller.EventRejected) {
		t.Error("upload_rejected not emitted")
	}
	if len(rec.banners) != 2 {
		t.Errorf("banners = %d, want 2", len(rec.banners))
	}

	docs, _ := lib.List()
	if len(docs) != 0 {
		t.Errorf("catalog has %d documents, want 0", len(docs))
	}
}

func TestRun_Ready(t *testing.T) {
	client := &fakeClient{
		statuses: []*tracking.Status{
			{Stage: tracking.StageProcessing, Progress: 10},
			{Stage: tracking.StageProcessing, Progress: 50},
			{Stage: tracking.StageCompleted, Progress: 100},
		},
	}
	lib := newLibrary(t)
	rec := &recorder{}
	ctrl := newController(client, lib, rec, nil)

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("report.pdf", 2048))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if outcome.State != controller.StateReady {
		t.Fatalf("State = %s, want ready", outcome.State)
	}

	doc := outcome.Document
	if doc.Status != catalog.StatusSynced || doc.CID != "bafkreifake" || doc.PageCount != 3 || doc.UploadID != "up-1" {
		t.Errorf("document = %+v, want synced with cid, pages and upload id", doc)
	}

	want := []controller.State{
		controller.StateValidating,
		controller.StateUploading,
		controller.StatePinning,
		controller.StateProcessing,
		controller.StateReady,
	}
	if !slices.Equal(rec.states, want) {
		t.Errorf("states = %v, want %v", rec.states, want)
	}
	if !slices.Equal(rec.toasts, []string{controller.ReadyMessage}) {
		t.Errorf("toasts = %v, want ready message", rec.toasts)
	}
	if len(rec.banners) != 0 {
		t.Errorf("banners = %v, want none", rec.banners)
	}
	if !rec.hasEvent(controller.EventStarted) || !rec.hasEvent(controller.EventCompleted) {
		t.Errorf("events = %v, want started and completed", rec.events)
	}
}

func TestRun_StatusNotFoundMeansNotReady(t *testing.T) {
	client := &fakeClient{
		errs: []error{
			&uploader.StatusError{Code: 404, Message: "Not found"},
			&uploader.StatusError{Code: 404, Message: "Not found"},
		},
	}
	ctrl := newController(client, newLibrary(t), &recorder{}, nil)

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("slow.pdf", 10))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if outcome.State != controller.StateReady {
		t.Errorf("State = %s, want ready", outcome.State)
	}
}

func TestRun_StatusErrorFails(t *testing.T) {
	client := &fakeClient{
		errs: []error{&uploader.StatusError{Code: 500, Message: "boom"}},
	}
	lib := newLibrary(t)
	rec := &recorder{}
	ctrl := newController(client, lib, rec, nil)

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("broken.pdf", 10))
	if err == nil {
		t.Fatal("Run() succeeded, want error")
	}
	if outcome.State != controller.StateError {
		t.Errorf("State = %s, want error", outcome.State)
	}
	if outcome.Document == nil || outcome.Document.Status != catalog.StatusError {
		t.Errorf("document = %+v, want status error", outcome.Document)
	}
	if len(rec.banners) != 1 {
		t.Errorf("banners = %v, want one", rec.banners)
	}
}

func TestRun_ProcessingFailed(t *testing.T) {
	client := &fakeClient{
		statuses: []*tracking.Status{
			{Stage: tracking.StageFailed, Message: "Processing failed", Error: "processing cancelled"},
		},
	}
	rec := &recorder{}
	ctrl := newController(client, newLibrary(t), rec, nil)

	_, err := ctrl.Run(context.Background(), pdfDescriptor("fails.pdf", 10))
	if !errors.Is(err, controller.ErrProcessingFailed) {
		t.Fatalf("Run() error = %v, want %v", err, controller.ErrProcessingFailed)
	}
	if !rec.hasEvent(controller.EventFailed) {
		t.Error("upload_failed not emitted")
	}
}

func TestRun_CancelEachActiveStage(t *testing.T) {
	aborted := func(ctx context.Context) error {
		return fmt.Errorf("%w: %w", uploader.ErrAborted, ctx.Err())
	}

	tests := []struct {
		name    string
		stage   controller.State
		never   string
		prepare func(c *fakeClient, started chan struct{})
	}{
		{
			name:  "uploading",
			stage: controller.StateUploading,
			never: "pin",
			prepare: func(c *fakeClient, started chan struct{}) {
				c.upload = func(ctx context.Context, desc files.Descriptor, opts uploader.Options) (*uploader.Upload, error) {
					opts.OnProgress(uploader.Progress{BytesUploaded: 1, BytesTotal: desc.Size})
					close(started)
					<-ctx.Done()
					return &uploader.Upload{ID: "up-1", Length: desc.Size, Offset: 1}, aborted(ctx)
				}
			},
		},
		{
			name:  "pinning",
			stage: controller.StatePinning,
			never: "process",
			prepare: func(c *fakeClient, started chan struct{}) {
				c.pin = func(ctx context.Context, _ string) (*uploader.PinResult, error) {
					close(started)
					<-ctx.Done()
					return nil, aborted(ctx)
				}
			},
		},
		{
			name:  "processing",
			stage: controller.StateProcessing,
			never: "result",
			prepare: func(c *fakeClient, started chan struct{}) {
				c.statuses = []*tracking.Status{{Stage: tracking.StageProcessing, Progress: 10}}
				c.process = func(context.Context, string) error {
					close(started)
					return nil
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started := make(chan struct{})
			client := &fakeClient{}
			tt.prepare(client, started)

			lib := newLibrary(t)
			rec := &recorder{}
			ctrl := newController(client, lib, rec, nil)

			session := ctrl.Start(context.Background(), pdfDescriptor("big.pdf", 4096))
			<-started

			if got := session.State(); got != tt.stage {
				t.Errorf("State() = %s, want %s", got, tt.stage)
			}
			session.Cancel()

			outcome, err := session.Wait()
			if !errors.Is(err, controller.ErrCanceled) {
				t.Fatalf("Wait() error = %v, want %v", err, controller.ErrCanceled)
			}
			if outcome.State != controller.StateCanceled {
				t.Errorf("outcome = %s, want canceled", outcome.State)
			}
			if got := session.State(); got != controller.StateIdle {
				t.Errorf("State() = %s, want idle", got)
			}

			docs, _ := lib.List()
			if len(docs) != 0 {
				t.Errorf("catalog has %d documents, want 0", len(docs))
			}
			if len(rec.banners) != 0 {
				t.Errorf("banners = %v, want none", rec.banners)
			}
			if !rec.hasEvent(controller.EventCanceled) {
				t.Error("upload_canceled not emitted")
			}
			if rec.hasEvent(controller.EventFailed) {
				t.Error("upload_failed emitted for a cancellation")
			}

			tail := rec.states[len(rec.states)-2:]
			if !slices.Equal(tail, []controller.State{controller.StateCanceled, controller.StateIdle}) {
				t.Errorf("final states = %v, want canceled then idle", tail)
			}
			if client.called(tt.never) {
				t.Errorf("%s called after cancellation", tt.never)
			}
		})
	}
}

func TestRun_RecordsUploadIDOnCreate(t *testing.T) {
	client := &fakeClient{
		upload: func(_ context.Context, desc files.Descriptor, opts uploader.Options) (*uploader.Upload, error) {
			opts.OnCreated(&uploader.Upload{ID: "up-7", Length: desc.Size})
			return nil, &uploader.StatusError{Code: 500, Message: "disk full"}
		},
	}
	lib := newLibrary(t)
	ctrl := newController(client, lib, &recorder{}, nil)

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("partial.pdf", 10))
	if err == nil {
		t.Fatal("Run() succeeded, want error")
	}
	if outcome.Document == nil {
		t.Fatal("outcome has no document")
	}
	if outcome.Document.UploadID != "up-7" || outcome.Document.Status != catalog.StatusError {
		t.Errorf("document = %+v, want error status with upload id up-7", outcome.Document)
	}
}

func TestResume(t *testing.T) {
	lib := newLibrary(t)
	docs := []catalog.Document{
		{ID: "doc-err", Title: "report.pdf", FileSize: 10, Status: catalog.StatusError, UploadID: "up-9"},
		{ID: "doc-new", Title: "report.pdf", FileSize: 10, Status: catalog.StatusError},
		{ID: "doc-done", Title: "report.pdf", FileSize: 10, Status: catalog.StatusSynced, UploadID: "up-3"},
		{ID: "doc-size", Title: "report.pdf", FileSize: 99, Status: catalog.StatusError, UploadID: "up-4"},
	}
	for _, d := range docs {
		if err := lib.Save(d); err != nil {
			t.Fatalf("Save(%s) failed: %v", d.ID, err)
		}
	}

	t.Run("continues interrupted upload", func(t *testing.T) {
		client := &fakeClient{}
		rec := &recorder{}
		ctrl := newController(client, lib, rec, nil)

		outcome, err := ctrl.Resume(context.Background(), "doc-err", pdfDescriptor("report.pdf", 10))
		if err != nil {
			t.Fatalf("Resume() failed: %v", err)
		}
		if outcome.State != controller.StateReady {
			t.Fatalf("State = %s, want ready", outcome.State)
		}
		if outcome.Document.ID != "doc-err" || outcome.Document.Status != catalog.StatusSynced || outcome.Document.CID != "bafkreifake" {
			t.Errorf("document = %+v, want doc-err synced with cid", outcome.Document)
		}
		if !client.called("resume:up-9") || client.called("upload") {
			t.Errorf("calls = %v, want resume of up-9 without a new upload", client.calls)
		}
		if !rec.hasEvent(controller.EventResumed) {
			t.Error("upload_resumed not emitted")
		}
	})

	tests := []struct {
		name string
		id   string
	}{
		{"no server upload", "doc-new"},
		{"already synced", "doc-done"},
		{"size mismatch", "doc-size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			rec := &recorder{}
			ctrl := newController(client, lib, rec, nil)

			session := ctrl.StartResume(context.Background(), tt.id, pdfDescriptor("report.pdf", 10))
			_, err := session.Wait()
			if !errors.Is(err, controller.ErrNotResumable) {
				t.Fatalf("Resume(%s) error = %v, want %v", tt.id, err, controller.ErrNotResumable)
			}
			if n := client.callCount(); n != 0 {
				t.Errorf("client calls = %d, want 0", n)
			}
			if got := session.State(); got != controller.StateIdle {
				t.Errorf("State() = %s, want idle", got)
			}
		})
	}

	t.Run("rejects invalid file", func(t *testing.T) {
		client := &fakeClient{}
		ctrl := newController(client, lib, &recorder{}, nil)

		desc := files.Descriptor{Name: "photo.png", Size: 10, MIMEType: "image/png", URI: "file:///photo.png"}
		if _, err := ctrl.Resume(context.Background(), "doc-err", desc); !errors.Is(err, controller.ErrRejected) {
			t.Fatalf("Resume() error = %v, want %v", err, controller.ErrRejected)
		}
		if n := client.callCount(); n != 0 {
			t.Errorf("client calls = %d, want 0", n)
		}
	})
}

func TestRun_DuplicateOpenExisting(t *testing.T) {
	client := &fakeClient{}
	lib := newLibrary(t)
	rec := &recorder{}

	existing := catalog.Document{
		ID:         "doc-1",
		Title:      "Untitled.pdf",
		UploadDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     catalog.StatusSynced,
		Type:       "pdf",
		FileSize:   3_000_000,
	}
	if err := lib.Save(existing); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	ctrl := newController(client, lib, rec, controller.Always(controller.OpenExisting))

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("Untitled.pdf", 3_000_000))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !outcome.Existing || outcome.State != controller.StateIdle || outcome.Document.ID != "doc-1" {
		t.Errorf("outcome = %+v, want existing doc-1 at idle", outcome)
	}
	if outcome.Document.LastOpened == nil {
		t.Error("LastOpened not recorded")
	}
	if len(rec.opened) != 1 {
		t.Errorf("OnOpen calls = %d, want 1", len(rec.opened))
	}
	if n := client.callCount(); n != 0 {
		t.Errorf("client calls = %d, want 0", n)
	}
	if !rec.hasEvent(controller.EventDuplicateOpened) {
		t.Error("duplicate_opened not emitted")
	}
}

func TestRun_DuplicateUploadAnyway(t *testing.T) {
	lib := newLibrary(t)
	if err := lib.Save(catalog.Document{ID: "doc-1", Title: "Untitled.pdf", FileSize: 10}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	prompted := 0
	prompter := controller.PromptFunc(func(_ context.Context, _ files.Descriptor, existing catalog.Document) (controller.Choice, error) {
		prompted++
		if existing.ID != "doc-1" {
			t.Errorf("existing = %s, want doc-1", existing.ID)
		}
		return controller.UploadAnyway, nil
	})

	rec := &recorder{}
	ctrl := newController(&fakeClient{}, lib, rec, prompter)

	outcome, err := ctrl.Run(context.Background(), pdfDescriptor("Untitled.pdf", 10))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if prompted != 1 || outcome.Existing {
		t.Errorf("prompted = %d existing = %v, want one prompt and a new upload", prompted, outcome.Existing)
	}

	docs, _ := lib.List()
	if len(docs) != 2 {
		t.Errorf("catalog has %d documents, want 2", len(docs))
	}
	if !rec.hasEvent(controller.EventDuplicateIgnored) {
		t.Error("duplicate_upload_anyway not emitted")
	}
}

package controller

import (
	"context"
	"sync"
	"time"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/files"
	"github.com/JaimeStill/upload-lab/internal/uploader"
)

// Outcome describes how a session ended.
type Outcome struct {
	// State is the terminal state reached, or idle when a duplicate was
	// resolved by opening the existing document.
	State    State
	Document *catalog.Document
	Existing bool
}

// Session is one upload attempt. Sessions share nothing but the catalog.
type Session struct {
	ID         string
	Descriptor files.Descriptor

	mu       sync.Mutex
	state    State
	progress uploader.Progress
	started  time.Time

	cancel  context.CancelCauseFunc
	done    chan struct{}
	outcome *Outcome
	err     error
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the last acknowledged transfer progress.
func (s *Session) Progress() uploader.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// ETA estimates the remaining transfer time as a coarse bucket.
func (s *Session) ETA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return ""
	}
	return uploader.ETA(s.progress.BytesUploaded, s.progress.BytesTotal, time.Since(s.started))
}

// Cancel aborts the attempt. Calling it after the session ended is a no-op.
func (s *Session) Cancel() {
	s.cancel(ErrCanceled)
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends.
func (s *Session) Wait() (*Outcome, error) {
	<-s.done
	return s.outcome, s.err
}

func (s *Session) setProgress(p uploader.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

func (s *Session) markStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = at
}

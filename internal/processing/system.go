// Package processing runs post-upload work: pinning completed uploads into
// the content-addressed store and driving the asynchronous processing job
// whose progress is recorded in the tracking store.
package processing

import (
	"context"

	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

// PinResult identifies pinned upload content.
type PinResult struct {
	UploadID string `json:"upload_id"`
	CID      string `json:"cid"`
	Bytes    int64  `json:"bytes"`
}

// System coordinates pinning and processing jobs.
type System interface {
	// Pin stores a complete upload's bytes under their CID. Pinning an
	// upload twice returns the recorded CID.
	Pin(ctx context.Context, uploadID string) (*PinResult, error)

	// Process starts a processing job unless one is running or has
	// completed, in which case the current status is returned unchanged.
	Process(ctx context.Context, uploadID string) (*tracking.Status, error)

	// Cancel stops an active job and waits for its failed status to be recorded.
	Cancel(ctx context.Context, uploadID string) error

	// Start binds jobs to the lifecycle context. Shutdown cancels running
	// jobs and waits for them to record their final status.
	Start(lc *lifecycle.Coordinator) error
}

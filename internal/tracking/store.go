package tracking

import (
	"context"

	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

// Store persists statuses and results keyed by upload identifier.
type Store interface {
	// GetStatus returns ErrNotFound for unknown identifiers.
	GetStatus(ctx context.Context, uploadID string) (*Status, error)

	// SetStatus stores status after CheckTransition against the current value.
	// The check and write are atomic per identifier.
	SetStatus(ctx context.Context, status Status) error

	// GetResult returns ErrNotFound for unknown identifiers.
	GetResult(ctx context.Context, uploadID string) (*Result, error)

	// UpdateResult applies fn to the stored result, creating an empty one
	// when absent, and returns the updated copy.
	UpdateResult(ctx context.Context, uploadID string, fn func(*Result)) (*Result, error)

	// Delete removes the status and result. Unknown identifiers are ignored.
	Delete(ctx context.Context, uploadID string) error

	// Start registers eviction with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

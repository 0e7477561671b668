package api

import (
	"github.com/JaimeStill/upload-lab/internal/config"
	"github.com/JaimeStill/upload-lab/internal/processing"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/internal/transfer"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Transfers  transfer.System
	Processing processing.System
	Tracking   tracking.Store
}

// NewDomain creates all domain systems from the API runtime. Transfer
// completion and failure are recorded in the tracking store.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	transfersSys := transfer.New(
		runtime.Storage,
		cfg.Storage.MaxUploadSizeBytes(),
		processing.NewTransferHooks(runtime.Tracking, runtime.Logger),
		runtime.Logger,
	)

	processingSys := processing.New(
		transfersSys,
		runtime.Tracking,
		runtime.Pinning,
		&cfg.Processing,
		runtime.Logger,
	)

	return &Domain{
		Transfers:  transfersSys,
		Processing: processingSys,
		Tracking:   runtime.Tracking,
	}
}

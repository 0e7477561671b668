package api

import (
	"github.com/JaimeStill/upload-lab/internal/infrastructure"
)

// Runtime extends Infrastructure with a module-scoped logger.
type Runtime struct {
	*infrastructure.Infrastructure
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Tracking:  infra.Tracking,
			Pinning:   infra.Pinning,
		},
	}
}

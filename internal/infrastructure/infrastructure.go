// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, storage, tracking, pinning and,
// when configured, the database) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/upload-lab/internal/config"
	"github.com/JaimeStill/upload-lab/internal/pinning"
	"github.com/JaimeStill/upload-lab/internal/tracking"
	"github.com/JaimeStill/upload-lab/pkg/database"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
	"github.com/JaimeStill/upload-lab/pkg/logging"
	"github.com/JaimeStill/upload-lab/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil unless the postgres tracking backend is selected.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Tracking  tracking.Store
	Pinning   pinning.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging)

	var db database.System
	if cfg.Tracking.Backend == tracking.BackendPostgres {
		var err error
		db, err = database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	blobs, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	store, err := tracking.New(&cfg.Tracking, db, logger)
	if err != nil {
		return nil, fmt.Errorf("tracking init failed: %w", err)
	}

	pins, err := pinning.New(lc.Context(), &cfg.Pinning, blobs, logger)
	if err != nil {
		return nil, fmt.Errorf("pinning init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   blobs,
		Tracking:  store,
		Pinning:   pins,
	}, nil
}

// Start initializes all infrastructure systems and registers them with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Tracking.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("tracking start failed: %w", err)
	}
	return nil
}

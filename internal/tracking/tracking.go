package tracking

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/upload-lab/pkg/database"
)

// New creates the Store selected by cfg.Backend. db is only used by the
// postgres backend and may be nil otherwise.
func New(cfg *Config, db database.System, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(cfg, logger), nil
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres backend requires a database")
		}
		return NewPostgres(cfg, db, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

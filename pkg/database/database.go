// Package database manages the PostgreSQL connection pool and schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

// System owns a *sql.DB and ties its availability to the lifecycle coordinator.
type System interface {
	Connection() (*sql.DB, error)
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	db     *sql.DB
	logger *slog.Logger
	cfg    *Config
	ready  atomic.Bool
}

// New opens a connection pool using the pgx stdlib driver. No connection is
// established until Start pings the server.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		db:     db,
		cfg:    cfg,
		logger: logger.With("system", "database"),
	}, nil
}

// Connection returns the pool once the startup ping has succeeded.
func (d *database) Connection() (*sql.DB, error) {
	if !d.ready.Load() {
		return nil, ErrNotReady
	}
	return d.db, nil
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection", "host", d.cfg.Host, "name", d.cfg.Name)

	ctx, cancel := context.WithTimeout(lc.Context(), d.cfg.ConnTimeoutDuration())
	defer cancel()

	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	d.ready.Store(true)
	d.logger.Info("database connection established")

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)
		if err := d.db.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}

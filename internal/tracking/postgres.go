package tracking

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/upload-lab/pkg/database"
	"github.com/JaimeStill/upload-lab/pkg/lifecycle"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a Store backed by PostgreSQL so that statuses survive restarts
// and can be shared by several server instances.
type Postgres struct {
	db            database.System
	ttl           time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
}

// NewPostgres creates a postgres store. The schema is migrated during Start,
// after the database system has connected.
func NewPostgres(cfg *Config, db database.System, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:            db,
		ttl:           cfg.TTLDuration(),
		sweepInterval: cfg.SweepIntervalDuration(),
		logger:        logger.With("system", "tracking", "backend", BackendPostgres),
	}
}

func (p *Postgres) Start(lc *lifecycle.Coordinator) error {
	conn, err := p.db.Connection()
	if err != nil {
		return err
	}

	if err := database.Migrate(conn, migrations, "migrations"); err != nil {
		return fmt.Errorf("tracking migrations: %w", err)
	}
	p.logger.Info("tracking schema migrated")

	lc.OnShutdown(func() {
		ticker := time.NewTicker(p.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				n, err := p.Sweep(lc.Context())
				if err != nil {
					p.logger.Error("sweep failed", "error", err)
					continue
				}
				if n > 0 {
					p.logger.Debug("evicted expired entries", "count", n)
				}
			}
		}
	})

	return nil
}

const selectStatus = `
	SELECT upload_id, stage, sub_stage, progress, message, error, updated_at
	FROM upload_statuses
	WHERE upload_id = $1 AND updated_at > $2`

func (p *Postgres) GetStatus(ctx context.Context, uploadID string) (*Status, error) {
	conn, err := p.db.Connection()
	if err != nil {
		return nil, err
	}

	s, err := scanStatus(conn.QueryRowContext(ctx, selectStatus, uploadID, p.cutoff()))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Postgres) SetStatus(ctx context.Context, status Status) error {
	conn, err := p.db.Connection()
	if err != nil {
		return err
	}

	return withTx(ctx, conn, func(tx *sql.Tx) error {
		current, err := scanStatus(tx.QueryRowContext(ctx, selectStatus+" FOR UPDATE", status.UploadID, p.cutoff()))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := CheckTransition(current, status); err != nil {
			return err
		}

		if status.UpdatedAt.IsZero() {
			status.UpdatedAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO upload_statuses (upload_id, stage, sub_stage, progress, message, error, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (upload_id) DO UPDATE SET
				stage = EXCLUDED.stage,
				sub_stage = EXCLUDED.sub_stage,
				progress = EXCLUDED.progress,
				message = EXCLUDED.message,
				error = EXCLUDED.error,
				updated_at = EXCLUDED.updated_at`,
			status.UploadID, status.Stage, status.SubStage, status.Progress,
			status.Message, status.Error, status.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert status: %w", err)
		}
		return nil
	})
}

func (p *Postgres) GetResult(ctx context.Context, uploadID string) (*Result, error) {
	conn, err := p.db.Connection()
	if err != nil {
		return nil, err
	}

	var data []byte
	err = conn.QueryRowContext(ctx,
		`SELECT data FROM upload_results WHERE upload_id = $1 AND updated_at > $2`,
		uploadID, p.cutoff(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select result: %w", err)
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}

func (p *Postgres) UpdateResult(ctx context.Context, uploadID string, fn func(*Result)) (*Result, error) {
	conn, err := p.db.Connection()
	if err != nil {
		return nil, err
	}

	var updated Result
	err = withTx(ctx, conn, func(tx *sql.Tx) error {
		var data []byte
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM upload_results WHERE upload_id = $1 AND updated_at > $2 FOR UPDATE`,
			uploadID, p.cutoff(),
		).Scan(&data)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			updated = Result{UploadID: uploadID}
		case err != nil:
			return fmt.Errorf("select result: %w", err)
		default:
			if err := json.Unmarshal(data, &updated); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}

		fn(&updated)
		updated.UploadID = uploadID

		encoded, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO upload_results (upload_id, data, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (upload_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
			uploadID, encoded,
		)
		if err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (p *Postgres) Delete(ctx context.Context, uploadID string) error {
	conn, err := p.db.Connection()
	if err != nil {
		return err
	}

	return withTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM upload_statuses WHERE upload_id = $1`, uploadID); err != nil {
			return fmt.Errorf("delete status: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM upload_results WHERE upload_id = $1`, uploadID); err != nil {
			return fmt.Errorf("delete result: %w", err)
		}
		return nil
	})
}

// Sweep deletes rows older than the TTL and returns how many were removed.
func (p *Postgres) Sweep(ctx context.Context) (int64, error) {
	conn, err := p.db.Connection()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, table := range []string{"upload_statuses", "upload_results"} {
		res, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE updated_at <= $1", p.cutoff())
		if err != nil {
			return total, fmt.Errorf("sweep %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (p *Postgres) cutoff() time.Time {
	return time.Now().UTC().Add(-p.ttl)
}

func scanStatus(row *sql.Row) (*Status, error) {
	var s Status
	err := row.Scan(&s.UploadID, &s.Stage, &s.SubStage, &s.Progress, &s.Message, &s.Error, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan status: %w", err)
	}
	return &s, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskquest/internal/config"
	"taskquest/internal/models"
	"taskquest/internal/storage/memory"
	"taskquest/internal/storage/postgres"
	"taskquest/internal/storage/sqlite"
	"taskquest/internal/storage/supabase"
)

// ErrNotConfigured is returned by Open when the selected driver lacks credentials.
var ErrNotConfigured = errors.New("store credentials not configured")

// Store is the row-level persistence the task service relies on.
type Store interface {
	// ListTasks returns every stored task.
	ListTasks(ctx context.Context) ([]models.Task, error)
	// InsertTask stores a new task and returns it with its assigned id.
	InsertTask(ctx context.Context, t models.NewTask) (models.Task, error)
	// UpdateTask writes the patch to the matching task. It returns nil without an
	// error when no task has that id.
	UpdateTask(ctx context.Context, id models.TaskID, patch models.TaskPatch) (*models.Task, error)
	// DeleteTask removes the matching task. An unknown id is not an error.
	DeleteTask(ctx context.Context, id models.TaskID) error
	Close() error
}

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*supabase.Client)(nil)
	_ Store = (*memory.Store)(nil)
)

// Open constructs the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%s: %w", cfg.Driver, ErrNotConfigured)
	}

	switch cfg.Driver {
	case config.DriverSupabase:
		c, err := supabase.New(cfg.URL, cfg.Key, cfg.Table, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN, cfg.Table, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

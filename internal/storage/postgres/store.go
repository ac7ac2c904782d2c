package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskquest/internal/models"
)

// Store keeps tasks in a PostgreSQL table, typically a managed database.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// Open connects to dsn, verifies the connection and ensures the table exists.
func Open(ctx context.Context, dsn, table string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(pool, table, logger)
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres store ready", slog.String("table", table))
	return s, nil
}

// New wraps an existing pool without running migrations.
func New(pool *pgxpool.Pool, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:   pool,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger,
	}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL DEFAULT '',
        completed BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

const columns = `id, title, completed, created_at`

func scanTask(row pgx.Row) (models.Task, error) {
	var (
		t  models.Task
		id string
	)
	if err := row.Scan(&id, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
		return models.Task{}, err
	}
	t.ID = models.TaskID(id)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM `+s.table+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) InsertTask(ctx context.Context, nt models.NewTask) (models.Task, error) {
	createdAt := nt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table+` (id, title, completed, created_at) VALUES ($1, $2, $3, $4) RETURNING `+columns,
		uuid.NewString(), nt.Title, nt.Completed, createdAt)
	t, err := scanTask(row)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id models.TaskID, patch models.TaskPatch) (*models.Task, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}
	args = append(args, string(id))

	var query string
	if len(sets) == 0 {
		query = `SELECT ` + columns + ` FROM ` + s.table + ` WHERE id = $1`
	} else {
		query = fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
			s.table, strings.Join(sets, ", "), len(args), columns)
	}

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id models.TaskID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("delete matched no task", slog.String("id", string(id)))
	}
	return nil
}

package taskapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskquest/internal/config"
	"taskquest/internal/models"
	"taskquest/internal/storage"
)

// ErrNotConfigured is returned by every operation when no store is available.
var ErrNotConfigured = errors.New("database not configured")

var driverSettings = map[string]string{
	config.DriverSupabase: "set SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY environment variables",
	config.DriverPostgres: "set DATABASE_URL environment variable",
	config.DriverSQLite:   "set TASKQUEST_DB_PATH environment variable",
}

// NotConfigured wraps ErrNotConfigured with the settings driver needs.
func NotConfigured(driver string) error {
	if hint, ok := driverSettings[driver]; ok {
		return fmt.Errorf("%w: %s", ErrNotConfigured, hint)
	}
	return fmt.Errorf("%w: set TASKQUEST_STORE to supabase, postgres, sqlite or memory", ErrNotConfigured)
}

// Unavailable maps an error from storage.Open to the error task requests report.
func Unavailable(driver string, err error) error {
	if errors.Is(err, storage.ErrNotConfigured) {
		return NotConfigured(driver)
	}
	return fmt.Errorf("open %s store: %w", driver, err)
}

// ListResult is the payload of a list call.
type ListResult struct {
	Tasks []models.Task `json:"tasks"`
	models.Stats
}

// TaskResult is the payload of a create or update call. Task is nil when an update
// matched nothing.
type TaskResult struct {
	Task *models.Task `json:"task"`
	models.Stats
}

// DeleteResult is the payload of a delete call.
type DeleteResult struct {
	Success bool `json:"success"`
	models.Stats
}

// Service runs task operations against a store and recomputes stats after each one.
// Without a store every operation fails with the reason it was given, by default
// NotConfigured(config.DriverSupabase).
type Service struct {
	store  storage.Store
	reason error
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the service to store. The store is shared by all requests and must
// be safe for concurrent use.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewUnavailableService returns a service with no store whose operations all fail
// with reason.
func NewUnavailableService(reason error, logger *slog.Logger) *Service {
	s := NewService(nil, logger)
	s.reason = reason
	return s
}

// Err returns the error operations fail with, or nil when a store is attached.
func (s *Service) Err() error {
	if s.store != nil {
		return nil
	}
	if s.reason != nil {
		return s.reason
	}
	return NotConfigured(config.DriverSupabase)
}

// Configured reports whether a store is attached.
func (s *Service) Configured() bool {
	return s.store != nil
}

// List returns every task with the current stats.
func (s *Service) List(ctx context.Context) (ListResult, error) {
	if !s.Configured() {
		return ListResult{}, s.Err()
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return ListResult{Tasks: tasks, Stats: models.ComputeStats(tasks)}, nil
}

// Create inserts an open task. An empty title is replaced by models.DefaultTitle.
func (s *Service) Create(ctx context.Context, title string) (TaskResult, error) {
	if !s.Configured() {
		return TaskResult{}, s.Err()
	}
	if title == "" {
		title = models.DefaultTitle
	}

	task, err := s.store.InsertTask(ctx, models.NewTask{
		Title:     title,
		Completed: false,
		CreatedAt: s.now(),
	})
	if err != nil {
		return TaskResult{}, err
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return TaskResult{}, err
	}
	return TaskResult{Task: &task, Stats: stats}, nil
}

// Update merges patch into the task with the given id. Without an id nothing is
// written and the result carries a nil task.
func (s *Service) Update(ctx context.Context, id models.TaskID, patch models.TaskPatch) (TaskResult, error) {
	if !s.Configured() {
		return TaskResult{}, s.Err()
	}

	var task *models.Task
	if id != "" {
		updated, err := s.store.UpdateTask(ctx, id, patch)
		if err != nil {
			return TaskResult{}, err
		}
		task = updated
	} else {
		s.logger.DebugContext(ctx, "update without id ignored")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return TaskResult{}, err
	}
	return TaskResult{Task: task, Stats: stats}, nil
}

// Delete removes the task with the given id. An empty id deletes nothing.
func (s *Service) Delete(ctx context.Context, id models.TaskID) (DeleteResult, error) {
	if !s.Configured() {
		return DeleteResult{}, s.Err()
	}

	if id != "" {
		if err := s.store.DeleteTask(ctx, id); err != nil {
			return DeleteResult{}, err
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Success: true, Stats: stats}, nil
}

// Stats re-reads the whole collection and derives xp and level from it.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	if !s.Configured() {
		return models.Stats{}, s.Err()
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("recount tasks: %w", err)
	}
	return models.ComputeStats(tasks), nil
}

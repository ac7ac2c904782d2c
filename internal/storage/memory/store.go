package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskquest/internal/models"
)

// Store keeps tasks in process memory. Data is lost on restart; it backs local runs
// and the adapter tests.
type Store struct {
	mu    sync.Mutex
	tasks []models.Task
}

func New() *Store {
	return &Store{}
}

func (s *Store) ListTasks(_ context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *Store) InsertTask(_ context.Context, nt models.NewTask) (models.Task, error) {
	createdAt := nt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	t := models.Task{
		ID:        models.TaskID(uuid.NewString()),
		Title:     nt.Title,
		Completed: nt.Completed,
		CreatedAt: createdAt,
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, id models.TaskID, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = patch.Apply(s.tasks[i])
			t := s.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteTask(_ context.Context, id models.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

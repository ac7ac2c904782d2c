package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/internal/models"
)

// setupTestStore opens a store backed by a fresh database file.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "nested", "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)
}

func TestStore_InsertAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := store.InsertTask(ctx, models.NewTask{Title: "write docs", CreatedAt: created})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "write docs", first.Title)
	assert.False(t, first.Completed)
	assert.True(t, created.Equal(first.CreatedAt))

	second, err := store.InsertTask(ctx, models.NewTask{Title: "ship", CreatedAt: created.Add(time.Minute)})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	tasks, err = store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)
}

func TestStore_UpdateTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	task, err := store.InsertTask(ctx, models.NewTask{Title: "original"})
	require.NoError(t, err)

	t.Run("completed only keeps title", func(t *testing.T) {
		done := true
		updated, err := store.UpdateTask(ctx, task.ID, models.TaskPatch{Completed: &done})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.Completed)
		assert.Equal(t, "original", updated.Title)
		assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("title only keeps completed", func(t *testing.T) {
		title := "renamed"
		updated, err := store.UpdateTask(ctx, task.ID, models.TaskPatch{Title: &title})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "renamed", updated.Title)
		assert.True(t, updated.Completed)
	})

	t.Run("empty patch returns current row", func(t *testing.T) {
		updated, err := store.UpdateTask(ctx, task.ID, models.TaskPatch{})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "renamed", updated.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		title := "ghost"
		updated, err := store.UpdateTask(ctx, "missing", models.TaskPatch{Title: &title})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})
}

func TestStore_DeleteTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	keep, err := store.InsertTask(ctx, models.NewTask{Title: "keep"})
	require.NoError(t, err)
	drop, err := store.InsertTask(ctx, models.NewTask{Title: "drop"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTask(ctx, drop.ID))
	require.NoError(t, store.DeleteTask(ctx, "missing"))

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	require.NoError(t, err)
	_, err = store.InsertTask(ctx, models.NewTask{Title: "persisted", Completed: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
}

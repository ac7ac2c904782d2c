package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/internal/models"
)

// setupTestStore connects to TEST_DATABASE_URL and uses a throwaway table.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("tasks_test_%d", time.Now().UnixNano())
	store, err := Open(ctx, dsn, table, nil)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), `DROP TABLE IF EXISTS `+store.table)
		_ = store.Close()
	})
	return store
}

func TestStore_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.InsertTask(ctx, models.NewTask{Title: "remote"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	done := true
	updated, err := store.UpdateTask(ctx, created.ID, models.TaskPatch{Completed: &done})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.Completed)
	assert.Equal(t, "remote", updated.Title)

	unchanged, err := store.UpdateTask(ctx, created.ID, models.TaskPatch{})
	require.NoError(t, err)
	require.NotNil(t, unchanged)
	assert.True(t, unchanged.Completed)

	missing, err := store.UpdateTask(ctx, "missing", models.TaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.Nil(t, missing)

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, store.DeleteTask(ctx, created.ID))
	require.NoError(t, store.DeleteTask(ctx, created.ID))

	tasks, err = store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

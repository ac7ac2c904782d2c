package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, name := range envs {
			t.Setenv(name, "")
		}
	}
	// Keep a stray .env in the package directory out of the picture.
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, AdapterGin, cfg.Server.Adapter)
	assert.Equal(t, DriverSupabase, cfg.Store.Driver)
	assert.Equal(t, "tasks", cfg.Store.Table)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Store.Configured())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("PORT", "3000")
	t.Setenv("TASKQUEST_ADAPTER", "Fiber")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Store.URL)
	assert.Equal(t, "service-key", cfg.Store.Key)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, AdapterFiber, cfg.Server.Adapter)
	assert.True(t, cfg.Store.Configured())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taskquest.yaml")
	content := []byte("store:\n  driver: sqlite\n  sqlite_path: /tmp/x.db\nlog:\n  format: json\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TASKQUEST_STORE", "mongo")
	_, err := Load("")
	assert.ErrorContains(t, err, "unknown store driver")

	clearEnv(t)
	t.Setenv("TASKQUEST_ADAPTER", "echo")
	_, err = Load("")
	assert.ErrorContains(t, err, "unknown server adapter")
}

func TestStoreConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  StoreConfig
		want bool
	}{
		{"supabase missing key", StoreConfig{Driver: DriverSupabase, URL: "https://x"}, false},
		{"supabase complete", StoreConfig{Driver: DriverSupabase, URL: "https://x", Key: "k"}, true},
		{"postgres without dsn", StoreConfig{Driver: DriverPostgres}, false},
		{"postgres with dsn", StoreConfig{Driver: DriverPostgres, DSN: "postgres://"}, true},
		{"sqlite", StoreConfig{Driver: DriverSQLite, SQLitePath: "a.db"}, true},
		{"memory", StoreConfig{Driver: DriverMemory}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.Configured())
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// HTTP adapters for the standalone process.
const (
	AdapterGin   = "gin"
	AdapterFiber = "fiber"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Adapter string `mapstructure:"adapter"`
}

// StoreConfig selects the task store and its credentials.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"` // Supabase project URL
	Key        string `mapstructure:"key"` // service role key
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Table      string `mapstructure:"table"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // text, json
	Output     string `mapstructure:"output"` // stdout, file, both
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// Configured reports whether the selected driver has the credentials it needs.
func (s StoreConfig) Configured() bool {
	switch s.Driver {
	case DriverSupabase:
		return s.URL != "" && s.Key != ""
	case DriverPostgres:
		return s.DSN != ""
	case DriverSQLite:
		return s.SQLitePath != ""
	case DriverMemory:
		return true
	default:
		return false
	}
}

var envBindings = map[string][]string{
	"server.addr":       {"TASKQUEST_ADDR", "PORT"},
	"server.adapter":    {"TASKQUEST_ADAPTER"},
	"store.driver":      {"TASKQUEST_STORE"},
	"store.url":         {"SUPABASE_URL"},
	"store.key":         {"SUPABASE_SERVICE_ROLE_KEY"},
	"store.dsn":         {"DATABASE_URL"},
	"store.sqlite_path": {"TASKQUEST_DB_PATH"},
	"store.table":       {"TASKQUEST_TABLE"},
	"log.level":         {"LOG_LEVEL"},
	"log.format":        {"LOG_FORMAT"},
	"log.output":        {"LOG_OUTPUT"},
	"log.file":          {"LOG_FILE"},
	"log.max_size":      {"LOG_MAX_SIZE"},
	"log.max_backups":   {"LOG_MAX_BACKUPS"},
	"log.max_age":       {"LOG_MAX_AGE"},
	"log.compress":      {"LOG_COMPRESS"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.adapter", AdapterGin)
	v.SetDefault("store.driver", DriverSupabase)
	v.SetDefault("store.url", "")
	v.SetDefault("store.key", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "data/tasks.db")
	v.SetDefault("store.table", "tasks")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/taskquest.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
}

// Load reads .env, the optional YAML file at path and the environment, in increasing
// order of precedence.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Server.Adapter = strings.ToLower(strings.TrimSpace(c.Server.Adapter))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Store.URL = strings.TrimRight(strings.TrimSpace(c.Store.URL), "/")
	c.Store.Key = strings.TrimSpace(c.Store.Key)
	if c.Server.Addr != "" && !strings.Contains(c.Server.Addr, ":") {
		// PORT is a bare number on most hosting platforms.
		c.Server.Addr = ":" + c.Server.Addr
	}
}

// Validate rejects unknown adapters and drivers. Missing credentials are not an error.
func (c *Config) Validate() error {
	switch c.Server.Adapter {
	case AdapterGin, AdapterFiber:
	default:
		return fmt.Errorf("unknown server adapter %q", c.Server.Adapter)
	}
	switch c.Store.Driver {
	case DriverSupabase, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store table must not be empty")
	}
	return nil
}

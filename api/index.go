// Package handler is the serverless entry point. Platforms that route every request
// under /api to a single Go function call Handler.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"taskquest/internal/config"
	"taskquest/internal/logger"
	"taskquest/internal/serverless"
	"taskquest/internal/storage"
	"taskquest/internal/taskapi"
)

var (
	once sync.Once
	h    http.Handler
)

// Handler serves one request. Configuration and the store client are built on the
// first call and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	h.ServeHTTP(w, r)
}

func setup() {
	h = newHandler()
}

// newHandler loads configuration and opens the store. A store that cannot be opened
// leaves task requests failing with the reason instead of failing the instance.
func newHandler() http.Handler {
	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("")
	if err != nil {
		l.Error("load config", slog.String("error", err.Error()))
		cfg = &config.Config{}
	} else if built, _, err := logger.New(cfg.Log); err == nil {
		// The closer is dropped: the process ends with the instance.
		l = built
	} else {
		l.Warn("build logger", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var svc *taskapi.Service
	store, err := storage.Open(ctx, cfg.Store, l)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		l.Warn("task store not configured", slog.String("driver", cfg.Store.Driver))
		svc = taskapi.NewUnavailableService(taskapi.NotConfigured(cfg.Store.Driver), l)
	case err != nil:
		l.Error("open task store", slog.String("driver", cfg.Store.Driver), slog.String("error", err.Error()))
		svc = taskapi.NewUnavailableService(taskapi.Unavailable(cfg.Store.Driver, err), l)
	default:
		svc = taskapi.NewService(store, l)
	}

	return serverless.New(taskapi.NewHandler(svc, l), l)
}

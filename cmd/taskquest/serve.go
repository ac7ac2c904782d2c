package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"taskquest/internal/config"
	"taskquest/internal/fiberserver"
	"taskquest/internal/logger"
	"taskquest/internal/server"
	"taskquest/internal/storage"
	"taskquest/internal/taskapi"
)

const (
	shutdownTimeout = 10 * time.Second
	openTimeout     = 10 * time.Second
)

// httpServer is what serve needs from either adapter.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type fiberRunner struct {
	srv  *fiberserver.Server
	addr string
}

func (f fiberRunner) ListenAndServe() error {
	return f.srv.Listen(f.addr)
}

func (f fiberRunner) Shutdown(ctx context.Context) error {
	return f.srv.Shutdown(ctx)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the task API as a long-lived HTTP server.

Examples:
  taskquest serve
  taskquest serve --addr :9000 --adapter fiber
  TASKQUEST_STORE=sqlite taskquest serve`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides TASKQUEST_ADDR and PORT)")
	cmd.Flags().String("adapter", "", "HTTP framework: gin or fiber")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Server.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("adapter"); f != nil && f.Changed {
		cfg.Server.Adapter = f.Value.String()
	}
	return cfg, cfg.Validate()
}

// openStore builds the task service for cfg. Missing credentials give a service that
// reports which settings to provide, so the API can still start.
func openStore(ctx context.Context, cfg config.StoreConfig, l *slog.Logger) (storage.Store, *taskapi.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	store, err := storage.Open(ctx, cfg, l)
	if errors.Is(err, storage.ErrNotConfigured) {
		l.Warn("task store not configured; task endpoints will fail",
			slog.String("driver", cfg.Driver))
		return nil, taskapi.NewUnavailableService(taskapi.NotConfigured(cfg.Driver), l), nil
	}
	if err != nil {
		return nil, nil, taskapi.Unavailable(cfg.Driver, err)
	}
	return store, taskapi.NewService(store, l), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	l, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Info("taskquest starting",
		slog.String("version", Version),
		slog.String("adapter", cfg.Server.Adapter),
		slog.String("store", cfg.Store.Driver),
	)

	store, svc, err := openStore(cmd.Context(), cfg.Store, l)
	if err != nil {
		_ = logCloser.Close()
		return err
	}

	api := taskapi.NewHandler(svc, l)
	srv := newHTTPServer(cfg.Server, api, l)

	errCh := make(chan error, 1)
	go func() {
		l.Info("starting server", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, shutdownOps(srv, store, l))

	select {
	case code := <-wait:
		l.Info("server stopped", slog.Int("exit_code", int(code)))
		_ = logCloser.Close()
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	case err := <-errCh:
		l.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		_ = closeStore(store)
		_ = logCloser.Close()
		return err
	}
}

func newHTTPServer(cfg config.ServerConfig, api *taskapi.Handler, l *slog.Logger) httpServer {
	if cfg.Adapter == config.AdapterFiber {
		return fiberRunner{srv: fiberserver.New(api, l), addr: cfg.Addr}
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(api, l).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// shutdownOps returns a single operation so the store closes only after in-flight
// requests have drained. gfshutdown runs separate operations concurrently.
func shutdownOps(srv httpServer, store io.Closer, l *slog.Logger) map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			l.Info("shutting down server")
			err := srv.Shutdown(ctx)
			if cerr := closeStore(store); cerr != nil {
				l.Error("close task store", slog.String("error", cerr.Error()))
				err = errors.Join(err, cerr)
			}
			return err
		},
	}
}

func closeStore(store io.Closer) error {
	if store == nil {
		return nil
	}
	return store.Close()
}

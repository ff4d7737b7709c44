// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/nodepad/internal/api"
	"github.com/starford/nodepad/internal/backup"
	"github.com/starford/nodepad/internal/index"
	"github.com/starford/nodepad/internal/mcpserver"
	"github.com/starford/nodepad/internal/pageservice"
	"github.com/starford/nodepad/internal/sse"
	"github.com/starford/nodepad/internal/storage"
)

const (
	treeEventThrottle = 2 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// components are the pieces shared by every command.
type components struct {
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB // nil when the cache is disabled
	close  func()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open sets up logging, the page store and, when enabled, the tag cache.
func (a *application) open(withIndex bool) (*components, error) {
	cfg := a.config
	logger, closeLog, err := newLogger(cfg.App, a.logOut)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("pages_path", cfg.Pages.Path),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.Bool("backup_enabled", cfg.Backup.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Pages.Path, 0o755); err != nil {
		closeLog()
		return nil, fmt.Errorf("create pages dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Pages.Path, logger)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &components{logger: logger, store: store, close: closeLog}
	if !withIndex || !cfg.Index.Enabled {
		return c, nil
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	c.db = db
	c.close = func() {
		_ = db.Close()
		closeLog()
	}
	return c, nil
}

func (a *application) backups(c *components) *backup.Manager {
	if !a.config.Backup.Enabled {
		return nil
	}
	return backup.New(c.store.Root(), a.config.Backup.Path, a.config.Backup.Retention, c.logger)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := app.open(true)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger

	broker := sse.NewBroker(treeEventThrottle)
	defer broker.Close()

	mgr := app.backups(c)
	svcOpts := []pageservice.Option{
		pageservice.WithLogger(logger),
		// With the cache on, the watcher reports file changes and the service
		// only announces moves.
		pageservice.WithEvents(broker, c.db != nil),
	}
	if c.db != nil {
		svcOpts = append(svcOpts, pageservice.WithCache(c.db))
	}
	if mgr != nil {
		svcOpts = append(svcOpts, pageservice.WithBackups(mgr))
	}
	svc := pageservice.New(c.store, svcOpts...)

	routerCfg := api.RouterConfig{
		Service:        svc,
		Backups:        mgr,
		Events:         broker,
		Settings:       api.Settings{PagesDirectory: c.store.Root()},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", app.version)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := os.Stat(c.store.Root()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "pages directory unavailable", app.version)
			return
		}
		if c.db != nil {
			if err := c.db.Ping(req.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "index unavailable", app.version)
				return
			}
		}
		writeStatus(w, http.StatusOK, "ok", app.version)
	})

	r.Mount("/api", api.NewRouter(routerCfg))
	r.Get("/pages/*", api.NewAssetHandler(routerCfg))

	if cfg.App.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.App.StaticDir)))
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if c.db != nil {
		g.Go(func() error {
			err := index.Watch(gCtx, c.db, c.store, logger, func(kind, path string) {
				broker.PublishPageEvent(kind, path, "")
			})
			if err != nil {
				// The API keeps working on a stale cache; refresh=true resyncs it.
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if mgr != nil {
		g.Go(func() error {
			return mgr.Run(gCtx, cfg.Backup.Interval, cfg.Backup.Cooldown)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the watcher and scheduler as well when a signal ended the server.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func writeStatus(w http.ResponseWriter, code int, status, version string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q,"version":%q}`, status, version)
}

// RunMCP serves the MCP tools over stdio until stdin closes or ctx ends.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.open(true)
	if err != nil {
		return err
	}
	defer c.close()

	mgr := app.backups(c)
	svcOpts := []pageservice.Option{pageservice.WithLogger(c.logger)}
	if c.db != nil {
		svcOpts = append(svcOpts, pageservice.WithCache(c.db))
	}
	if mgr != nil {
		svcOpts = append(svcOpts, pageservice.WithBackups(mgr))
	}
	srv := mcpserver.New(pageservice.New(c.store, svcOpts...), app.version, app.config.Uploads.MaxBytes)

	g, gCtx := errgroup.WithContext(ctx)
	if mgr != nil {
		// Only save-triggered snapshots; the HTTP server owns the schedule.
		g.Go(func() error {
			return mgr.Run(gCtx, 0, app.config.Backup.Cooldown)
		})
	}
	g.Go(func() error {
		c.logger.Info("MCP server listening on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}

// RunBackup takes one snapshot of the pages directory and applies retention.
func RunBackup(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.config.Backup.Path == "" {
		return fmt.Errorf("backup.path is required")
	}
	c, err := app.open(false)
	if err != nil {
		return err
	}
	defer c.close()

	retention := app.config.Backup.Retention
	mgr := backup.New(c.store.Root(), app.config.Backup.Path, retention, c.logger)
	a, err := mgr.Snapshot(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("Backup written",
		slog.String("archive", a.Name),
		slog.Int64("size", a.Size),
		slog.String("dir", mgr.Dir()))
	return nil
}

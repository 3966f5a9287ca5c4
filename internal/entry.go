// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/qarchive/internal/api"
	"github.com/starford/qarchive/internal/mcpserver"
	"github.com/starford/qarchive/internal/settings"
	"github.com/starford/qarchive/internal/sse"
	"github.com/starford/qarchive/internal/watch"
	"github.com/starford/qarchive/internal/workspace"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		picker:  settings.NoPicker{},
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenSettings opens the preferences file named by cfg.
func OpenSettings(cfg *Config, logger *slog.Logger) (*settings.Store, error) {
	path := cfg.Settings.Path
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return settings.NewStore(path, settings.WithLogger(logger))
}

// openService loads the preferences, resolves the data root and opens its
// workspace.
func openService(ctx context.Context, app *application, logger *slog.Logger, extra ...api.ServiceOption) (*api.Service, error) {
	st, err := OpenSettings(app.config, logger)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	prefs, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	root, err := settings.Resolve(prefs)
	if err != nil {
		return nil, err
	}
	wsOpts := []workspace.Option{workspace.WithLogger(logger)}
	ws, err := workspace.Open(root, wsOpts...)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	logger.Info("Workspace opened",
		slog.String("settings_path", st.Path()),
		slog.String("data_root", root.Dir))

	opts := []api.ServiceOption{
		api.WithPicker(app.picker),
		api.WithLogger(logger),
		api.WithWorkspaceOptions(wsOpts...),
	}
	return api.NewService(ws, st, append(opts, extra...)...), nil
}

// sendLatest hands root to the watcher supervisor, replacing a root it has
// not picked up yet.
func sendLatest(ch chan settings.DataRoot, root settings.DataRoot) {
	for {
		select {
		case ch <- root:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := NewLogger(app.stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Duration("events_throttle", cfg.Events.Throttle),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	roots := make(chan settings.DataRoot, 1)
	svc, err := openService(ctx, app, logger, api.OnRootChange(func(ws *workspace.Workspace) {
		broker.Publish(sse.Event{Type: sse.RootChanged, Data: map[string]string{"dataRoot": ws.Root.Dir}})
		sendLatest(roots, ws.Root)
	}))
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker,
		api.NewIdempotency(cfg.Idempotency.TTL))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Workspace().Threads.Load(req.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data root and follow it across settings changes.
	g.Go(func() error {
		return watch.Supervise(gCtx, svc.Workspace().Root, roots, logger, broker.PublishChange)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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
		cancel()

		logger.Info("Shutting down server...")

		// Event streams never go idle; end them before draining connections.
		broker.Close()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP protocol over stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := NewLogger(app.stderr, app.config.App.LogLevel)
	slog.SetDefault(logger)

	svc, err := openService(ctx, app, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server running on stdio", slog.String("version", app.version))
	err = mcpserver.New(svc, app.version).Serve(ctx, app.stdin, app.stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

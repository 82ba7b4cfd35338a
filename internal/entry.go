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
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ideacards/internal/api"
	"github.com/starford/ideacards/internal/dictionary"
	"github.com/starford/ideacards/internal/ideaclient"
	"github.com/starford/ideacards/internal/ideaservice"
	"github.com/starford/ideacards/internal/inbox"
	"github.com/starford/ideacards/internal/mcpserver"
	"github.com/starford/ideacards/internal/metrics"
	"github.com/starford/ideacards/internal/sse"
	"github.com/starford/ideacards/internal/store"
	"github.com/starford/ideacards/internal/tui"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server: idea API, live events, metrics and the inbox
// watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("dictionary_path", cfg.Dictionary.Path),
		slog.String("inbox_path", cfg.Inbox.Path),
		slog.Bool("auth", cfg.Auth.AuthEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	svcOpts := []ideaservice.Option{
		ideaservice.WithEvents(broker),
		ideaservice.WithMetrics(collector),
		ideaservice.WithLogger(logger),
		ideaservice.WithSuggestLimit(cfg.Suggest.Limit),
	}
	exporter, err := newExporter(cfg)
	if err != nil {
		return err
	}
	if exporter != nil {
		svcOpts = append(svcOpts, ideaservice.WithExporter(exporter))
	}
	svc := ideaservice.New(db, svcOpts...)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if collector != nil {
		r.Use(collector.Middleware)
		r.Handle("/metrics", collector.Handler())
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes (and the SSE stream) under /api.
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Enabled() {
		in, err := inbox.New(cfg.Inbox.Path, svc,
			inbox.WithLogger(logger),
			inbox.WithMetrics(collector))
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		g.Go(func() error {
			return in.Watch(gCtx)
		})
	}

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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the idea tools over stdio against the configured store.
// Logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	svcOpts := []ideaservice.Option{
		ideaservice.WithLogger(logger),
		ideaservice.WithSuggestLimit(cfg.Suggest.Limit),
	}
	exporter, err := newExporter(cfg)
	if err != nil {
		return err
	}
	if exporter != nil {
		svcOpts = append(svcOpts, ideaservice.WithExporter(exporter))
	}

	logger.Info("MCP server starting", slog.String("version", app.version), slog.String("sqlite_path", cfg.SQLite.Path))
	srv := mcpserver.New(ideaservice.New(db, svcOpts...), app.version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// RunTUI starts the terminal client against the configured server. Logs go
// to client.log_file since the screen owns stdout.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	var logOut io.Writer = io.Discard
	if cfg.Client.LogFile != "" {
		f, err := os.OpenFile(cfg.Client.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)

	client, err := ideaclient.New(cfg.Client.BaseURL,
		ideaclient.WithTimeout(cfg.Client.Timeout),
		ideaclient.WithToken(cfg.Client.Token),
		ideaclient.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("terminal client starting", slog.String("base_url", cfg.Client.BaseURL))
	return tui.Run(ctx, client,
		tui.WithAckDelay(cfg.Editor.SavedAck),
		tui.WithLogger(logger))
}

// newExporter returns the dictionary exporter, or nil when export is off.
func newExporter(cfg *Config) (ideaservice.Exporter, error) {
	if !cfg.Dictionary.Enabled() {
		return nil, nil
	}
	vault, err := dictionary.NewVault(cfg.Dictionary.Path)
	if err != nil {
		return nil, fmt.Errorf("init dictionary: %w", err)
	}
	return dictionary.NewExporter(vault), nil
}

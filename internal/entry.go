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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/epiledger/internal/adapter/kafka"
	"github.com/starford/epiledger/internal/api"
	"github.com/starford/epiledger/internal/index"
	"github.com/starford/epiledger/internal/mcpserver"
	"github.com/starford/epiledger/internal/observability"
	"github.com/starford/epiledger/internal/recordservice"
	"github.com/starford/epiledger/internal/sse"
	"github.com/starford/epiledger/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return observability.NewLogger(a.logOutput, a.config.App.LogLevel, a.config.App.LogFormat)
}

// OpenRecords builds a record service over the configured data file and loads
// it. One-shot CLI commands use it; no index, watcher or publisher is started.
// Logs go to stderr unless WithLogOutput says otherwise.
func OpenRecords(ctx context.Context, opts ...Option) (*recordservice.Service, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return nil, err
	}
	cfg := app.config

	store, err := storage.NewCSV(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	svc := recordservice.New(store,
		recordservice.WithLogger(app.logger()),
		recordservice.WithThresholds(cfg.Analysis.Thresholds()),
	)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// components are the long-running pieces shared by Run and RunMCP.
type components struct {
	svc     *recordservice.Service
	store   *storage.CSV
	closers []io.Closer
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
}

func buildComponents(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics, extra ...recordservice.Option) (*components, error) {
	store, err := storage.NewCSV(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c := &components{store: store}

	opts := []recordservice.Option{
		recordservice.WithLogger(logger),
		recordservice.WithMetrics(metrics),
		recordservice.WithThresholds(cfg.Analysis.Thresholds()),
	}

	if cfg.SQLite.Enabled {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		c.closers = append(c.closers, db)

		rebuilt, err := index.Sync(db, store, logger)
		if err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else if rebuilt {
			metrics.IndexSyncs.Inc()
		}
		opts = append(opts, recordservice.WithIndex(db))
	}

	if cfg.Kafka.Enabled {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, metrics, logger)
		c.closers = append(c.closers, pub)
		opts = append(opts, recordservice.WithPublisher(pub))
		logger.Info("Publishing records to Kafka",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic))
	}

	c.svc = recordservice.New(store, append(opts, extra...)...)
	if err := c.svc.Load(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// watch reloads the service whenever the data file changes on disk.
func watch(ctx context.Context, c *components, logger *slog.Logger) error {
	return index.Watch(ctx, c.store.Path(), logger, func(kind string) {
		if _, err := c.svc.Reload(ctx); err != nil {
			logger.Warn("reload after change failed",
				slog.String("op", kind),
				slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.Bool("sqlite_enabled", cfg.SQLite.Enabled),
		slog.Bool("watch_enabled", cfg.Watch.Enabled),
		slog.Bool("kafka_enabled", cfg.Kafka.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	comp, err := buildComponents(ctx, cfg, logger, metrics,
		recordservice.WithListener(func(ev recordservice.Event) {
			broker.Notify(sse.Change{Kind: ev.Kind, City: ev.City, Count: ev.Count})
		}),
	)
	if err != nil {
		return err
	}
	defer comp.Close()
	svc := comp.svc

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := comp.store.Checksum(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"data file unreadable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			if err := watch(gCtx, comp, logger); err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
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

// errShutdown cancels the group's context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	comp, err := buildComponents(ctx, app.config, logger, observability.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer comp.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if app.config.Watch.Enabled {
		go func() {
			if err := watch(ctx, comp, logger); err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting", slog.String("data_path", comp.store.Path()))
	return mcpserver.New(comp.svc, app.version).ServeStdio()
}

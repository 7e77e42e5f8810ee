package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/phrazzld/taskengine/internal/api"
	"github.com/phrazzld/taskengine/internal/config"
	"github.com/phrazzld/taskengine/internal/events"
	"github.com/phrazzld/taskengine/internal/platform/postgres"
	"github.com/phrazzld/taskengine/internal/platform/rabbitmq"
	"github.com/phrazzld/taskengine/internal/platform/telemetry"
	"github.com/phrazzld/taskengine/internal/service/auth"
	"github.com/phrazzld/taskengine/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// deliveryQueueCapacity bounds events waiting for the external sink. When
// full, the oldest pending delivery is dropped.
const deliveryQueueCapacity = 1024

// application holds the long-lived components of the serve command.
type application struct {
	config *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	tracing  *telemetry.Tracing
	tokens   auth.TokenService

	// bus receives completion events from job engines and fans them out.
	bus *events.InMemoryEventEmitter

	engine   *task.Engine
	keyed    *task.KeyedEngine
	delivery *task.Engine

	closers []func(context.Context) error
}

// engineConfig converts the validated configuration section into engine options.
func engineConfig(cfg config.EngineConfig) (task.EngineConfig, error) {
	mode, err := task.ParseFullMode(cfg.ChannelFullMode)
	if err != nil {
		return task.EngineConfig{}, err
	}
	return task.EngineConfig{
		MaxConcurrentWorkers:   cfg.MaxConcurrentWorkers,
		ChannelCapacity:        cfg.ChannelCapacity,
		ChannelFullMode:        mode,
		UseGlobalStoppingToken: cfg.UseGlobalStoppingToken,
		EnableDetailedLogging:  cfg.EnableDetailedLogging,
		DrainTimeout:           cfg.DrainTimeout,
	}, nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.setup(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return nil, errors.Join(err, app.close(closeCtx))
	}
	return app, nil
}

func (app *application) setup(ctx context.Context) error {
	jobConfig, err := engineConfig(app.config.Engine)
	if err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}

	var metrics *task.Metrics
	if app.config.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err = task.NewMetrics(app.registry, app.config.Metrics.Namespace)
		if err != nil {
			return fmt.Errorf("failed to register engine metrics: %w", err)
		}
	}

	app.tracing, err = telemetry.SetupTracing(app.config.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	app.closers = append(app.closers, app.tracing.Shutdown)

	app.tokens, err = auth.NewTokenService(app.config.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	sink, err := app.setupSink(ctx)
	if err != nil {
		return err
	}

	// Sink I/O runs on its own engine so a slow broker never holds a job worker.
	app.delivery = task.NewEngine(task.EngineConfig{
		MaxConcurrentWorkers: 1,
		ChannelCapacity:      deliveryQueueCapacity,
		ChannelFullMode:      task.FullModeDropOldest,
		DrainTimeout:         jobConfig.DrainTimeout,
	}, app.logger, task.WithName("delivery"), task.WithMetrics(metrics))

	app.bus = events.NewInMemoryEventEmitter(app.logger)
	app.bus.RegisterHandler(task.NewEnqueueingHandler(app.delivery, events.ForwardTo(sink), app.logger))

	app.engine = task.NewEngine(jobConfig, app.logger,
		task.WithName("jobs"),
		task.WithMetrics(metrics),
		task.WithEmitter(app.bus))
	app.keyed = task.NewKeyedEngine(jobConfig, app.logger,
		task.WithMetrics(metrics),
		task.WithEmitter(app.bus))

	return nil
}

// setupSink builds the external destination for completion events.
func (app *application) setupSink(ctx context.Context) (events.EventEmitter, error) {
	cfg := app.config.Notifier

	switch cfg.Sink {
	case "amqp":
		conn, err := rabbitmq.Dial(cfg.AMQPURL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return conn.Close() })

		publisher := rabbitmq.NewPublisher(conn, cfg.Exchange, app.logger)
		if err := publisher.SetupTopology(ctx); err != nil {
			return nil, fmt.Errorf("failed to set up broker topology: %w", err)
		}
		return publisher, nil

	case "outbox":
		pool, err := postgres.NewPool(ctx, app.config.Database.URL, app.logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		return postgres.NewOutboxEmitter(pool, app.logger), nil

	default:
		return newLogEmitter(app.logger), nil
	}
}

func (app *application) router() http.Handler {
	cfg := api.RouterConfig{
		Engine: app.engine,
		Keyed:  app.keyed,
		Tokens: app.tokens,
		Logger: app.logger,
	}
	if app.registry != nil {
		cfg.Gatherer = app.registry
	}
	return api.NewRouter(cfg)
}

// start starts the engines in reverse dependency order. On failure the
// engines already started are stopped again.
func (app *application) start() error {
	if err := app.delivery.Start(); err != nil {
		return fmt.Errorf("failed to start delivery engine: %w", err)
	}

	var err error
	if err = app.keyed.Start(); err != nil {
		err = fmt.Errorf("failed to start keyed engine: %w", err)
	} else if err = app.engine.Start(); err != nil {
		err = fmt.Errorf("failed to start job engine: %w", err)
	}
	if err == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Engine.DrainTimeout)
	defer cancel()
	return errors.Join(err, app.stopJobEngines(stopCtx), app.delivery.Stop(stopCtx))
}

// stopJobEngines drains the job and keyed engines concurrently within ctx.
func (app *application) stopJobEngines(ctx context.Context) error {
	var (
		g                   errgroup.Group
		engineErr, keyedErr error
	)
	g.Go(func() error {
		if err := app.engine.Stop(ctx); err != nil {
			engineErr = fmt.Errorf("job engine: %w", err)
		}
		return engineErr
	})
	g.Go(func() error {
		if err := app.keyed.Stop(ctx); err != nil {
			keyedErr = fmt.Errorf("keyed engine: %w", err)
		}
		return keyedErr
	})
	if g.Wait() == nil {
		return nil
	}
	return errors.Join(engineErr, keyedErr)
}

// run serves HTTP and runs the engines until ctx is done, then shuts down in
// dependency order: HTTP intake, job engines, event delivery.
func (app *application) run(ctx context.Context) error {
	if err := app.start(); err != nil {
		return err
	}

	server := newHTTPServer(app.config.Server.Port, app.router())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		var shutdownErr error
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), app.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
		}

		// Requests accepted before Shutdown have returned; no more work arrives.
		stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(gctx), app.config.Engine.DrainTimeout)
		defer stopCancel()
		return errors.Join(shutdownErr, app.stopJobEngines(stopCtx))
	})

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Engine.DrainTimeout)
	defer cancel()
	if err := app.delivery.Stop(stopCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("delivery engine: %w", err))
	}

	if runErr != nil {
		app.logger.Error("shutdown completed with errors", "error", runErr)
		return runErr
	}
	app.logger.Info("shutdown completed")
	return nil
}

// close releases external resources in reverse order of acquisition.
func (app *application) close(ctx context.Context) error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// logEmitter is the "log" sink: it records events in the process log.
type logEmitter struct {
	logger *slog.Logger
}

func newLogEmitter(logger *slog.Logger) *logEmitter {
	return &logEmitter{logger: logger.With("component", "log_sink")}
}

func (e *logEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	e.logger.InfoContext(ctx, "event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"source_id", event.SourceID,
		"payload", string(event.Payload))
	return nil
}

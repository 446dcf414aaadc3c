package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/nutritrack-api/internal/config"
	"github.com/phrazzld/nutritrack-api/internal/platform/compute"
	"github.com/phrazzld/nutritrack-api/internal/platform/memory"
	"github.com/phrazzld/nutritrack-api/internal/platform/telemetry"
	"github.com/phrazzld/nutritrack-api/internal/service"
	"github.com/phrazzld/nutritrack-api/internal/service/auth"
	"github.com/phrazzld/nutritrack-api/internal/task"
	"go.opentelemetry.io/otel/metric"
)

// serviceName names the server in spans and metrics.
const serviceName = "nutritrack-api"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	metrics   *telemetry.Metrics
	taskStore *memory.TaskStore
	queue     *task.DispatchQueue

	jwtService        auth.JWTService
	mealPlanService   *service.MealPlanService
	taskStatusService *service.TaskStatusService
}

// appOption customizes how the application is assembled.
type appOption func(*appDeps)

type appDeps struct {
	runner        task.Runner
	meterProvider metric.MeterProvider
}

// withRunner replaces the compute client as the queue's runner.
func withRunner(r task.Runner) appOption {
	return func(d *appDeps) {
		d.runner = r
	}
}

// withMeterProvider records metrics on mp instead of the global provider.
func withMeterProvider(mp metric.MeterProvider) appOption {
	return func(d *appDeps) {
		d.meterProvider = mp
	}
}

// newApplication creates a new application instance with all dependencies
// initialized. The queue is created stopped; Run starts it.
func newApplication(cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	deps := appDeps{}
	for _, opt := range opts {
		opt(&deps)
	}

	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.metrics, err = telemetry.NewMetrics(deps.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskStore = memory.NewTaskStore()

	runner := deps.runner
	if runner == nil {
		runner, err = compute.NewClient(cfg.Compute, logger, compute.WithMetrics(app.metrics))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize compute client: %w", err)
		}
		logger.Info("Compute client initialized",
			"base_url", cfg.Compute.BaseURL,
			"max_attempts", cfg.Compute.MaxAttempts,
			"poll_interval", cfg.Compute.PollInterval)
	}

	app.queue, err = task.NewDispatchQueue(runner, logger, task.WithMetrics(app.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch queue: %w", err)
	}

	app.mealPlanService, err = service.NewMealPlanService(
		app.taskStore,
		app.queue,
		logger,
		service.WithMetrics(app.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create meal plan service: %w", err)
	}

	app.taskStatusService, err = service.NewTaskStatusService(app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task status service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

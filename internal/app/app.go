package app

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
	"github.com/go-chi/render"
	"github.com/jonboulle/clockwork"
	promclient "github.com/prometheus/client_golang/prometheus"

	"crmexport/internal/config"
	apierrors "crmexport/internal/errors"
	"crmexport/internal/exporter"
	"crmexport/internal/files"
	"crmexport/internal/infrastructure"
	customMiddleware "crmexport/internal/middleware"
	"crmexport/internal/services"
	handlers "crmexport/internal/transport/http"
)

// BuildTime is set at compile time with -ldflags "-X crmexport/internal/app.BuildTime=..."
var BuildTime = "unknown"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Clock         clockwork.Clock
	OTelProviders *infrastructure.OTelProviders
	Services      *ServiceContainer

	registry *promclient.Registry
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Exporter *exporter.Exporter
	Export   *services.ExportService
	Health   *services.HealthService
	Archive  *files.Manager
}

// Option customises an Application before it is wired
type Option func(*Application)

// WithLogger replaces the global infrastructure logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// WithClock replaces the wall clock used for export dates and uptime
func WithClock(clock clockwork.Clock) Option {
	return func(a *Application) { a.Clock = clock }
}

// WithMetricsRegistry registers the Prometheus collector on reg instead of
// the default registerer.
func WithMetricsRegistry(reg *promclient.Registry) Option {
	return func(a *Application) { a.registry = reg }
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	app := &Application{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = logger
	}
	if app.Clock == nil {
		app.Clock = clockwork.NewRealClock()
	}

	app.Logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(app.Logger)
	app.Paths = paths

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.Registry = app.registry
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	app.OTelProviders = otelProviders

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	translator, err := exporter.NewTranslator(a.Config.Export.Locale)
	if err != nil {
		return fmt.Errorf("failed to load locale %q: %w", a.Config.Export.Locale, err)
	}

	fileSink := exporter.NewFileSink(a.Paths, a.Logger)
	exp, err := exporter.New(exporter.Config{
		Sink:         fileSink,
		Logger:       a.Logger,
		Clock:        a.Clock,
		Translator:   translator,
		DefaultTitle: a.Config.Export.DefaultTitle,
		Tracer:       a.OTelProviders.Tracer,
		Meter:        a.OTelProviders.Meter,
	})
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	// The archive stays nil unless enabled so that the handlers and the
	// readiness probe see a true nil.
	var (
		archive exporter.Sink
		manager *files.Manager
		lister  services.ArchiveLister
	)
	if a.Config.Export.Archive {
		archive = fileSink
		manager = files.NewManager(a.Paths, a.Logger)
		lister = manager
	}

	a.Services = &ServiceContainer{
		Exporter: exp,
		Export:   services.NewExportService(exp, archive, a.Logger),
		Health:   services.NewHealthService(config.AppVersion, BuildTime, a.Paths, lister, a.Clock, a.Logger),
		Archive:  manager,
	}

	a.Logger.Info("Services initialized",
		slog.String("locale", a.Config.Export.Locale),
		slog.Bool("archive", a.Config.Export.Archive))

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// Ordering: RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, errorHandler)
	})

	// Outside the middleware group so scrapes are neither logged nor limited
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler, a.Config.Export.MaxBodyBytes)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	exportHandler := handlers.NewExportHandler(a.Services.Export, a.Services.Archive, validation, a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.With(customMiddleware.Timeout(a.Config.Export.Timeout, a.Logger)).
			Mount("/exports", exportHandler.Routes())
	})
}

// getCORSConfig builds the CORS policy from the security configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			exporter.ExportIDHeader,
			handlers.ExportStatusHeader,
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server in the background. A listener failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.String("exports_dir", a.Paths.ExportsDir))

	if status := a.Services.Health.ReadinessCheck(ctx); status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check failed", slog.Any("services", status.Services))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or until the server fails
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	// ctx is already done; shutdown gets a fresh deadline
	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/oshinlather/image-to-excel-converter/internal/config"
	apierrors "github.com/oshinlather/image-to-excel-converter/internal/errors"
	"github.com/oshinlather/image-to-excel-converter/internal/exporter"
	"github.com/oshinlather/image-to-excel-converter/internal/inference"
	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
	customMiddleware "github.com/oshinlather/image-to-excel-converter/internal/middleware"
	"github.com/oshinlather/image-to-excel-converter/internal/recognition"
	"github.com/oshinlather/image-to-excel-converter/internal/services"
	"github.com/oshinlather/image-to-excel-converter/internal/sheets"
	handlers "github.com/oshinlather/image-to-excel-converter/internal/transport/http"
	ws "github.com/oshinlather/image-to-excel-converter/internal/websocket"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ConverterMetrics
	ErrorHandler  *apierrors.ErrorHandler

	WebSocketHub     *ws.Hub
	ConverterService *services.ConverterService
	HealthService    *services.HealthService
	Engines          []string
}

// NewApplication loads configuration and the process logger, then wires the
// application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	return New(cfg, logger)
}

// New wires an application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    cfg.Telemetry.Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewConverterMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create converter metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	cfg := a.Config

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(ws.Config{
		PingPeriod: cfg.WebSocket.PingPeriod,
		PongWait:   cfg.WebSocket.PongWait,
	}, wsMetrics, a.Logger)

	registry := NewRecognizers(cfg.Recognition, a.Logger)
	for engine := range registry {
		a.Engines = append(a.Engines, string(engine))
	}
	sort.Strings(a.Engines)

	var sheetWriter services.SheetWriter
	if cfg.Sheets.CredentialsFile != "" {
		w, err := sheets.NewWriter(ctx, a.Logger, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
		if err != nil {
			return fmt.Errorf("failed to initialize sheets writer: %w", err)
		}
		sheetWriter = w
	}

	mode, err := sheets.ParseMode(cfg.Sheets.DefaultMode)
	if err != nil {
		return err
	}

	a.ConverterService = services.NewConverterService(services.ConverterDeps{
		Store:       services.NewSessionStore(cfg.Sessions.MaxSessions),
		Recognizers: registry,
		Exporter:    exporter.New(cfg.Export.SheetName, cfg.Export.BaseName, a.Logger),
		Sheets:      sheetWriter,
		Notifier:    a.WebSocketHub,
		Metrics:     a.Metrics,
		Tracer:      a.OTelProviders.Tracer,
		Logger:      a.Logger,
	}, services.ConverterOptions{
		Inference:  InferenceOptions(cfg.Inference),
		Language:   cfg.Recognition.Language,
		SheetsMode: mode,
	})

	a.HealthService = services.NewHealthService(contracts.Version, services.HealthDeps{
		Sessions:      a.ConverterService,
		Clients:       a.WebSocketHub,
		Engines:       a.Engines,
		SheetsEnabled: a.ConverterService.SheetsEnabled(),
	}, a.Logger)

	return nil
}

// NewRecognizers builds the engine registry. Text and PDF are always
// present; OCR needs the ocr build tag and vision needs an API key.
func NewRecognizers(cfg config.RecognitionConfig, logger *slog.Logger) recognition.Registry {
	registry := recognition.Registry{
		recognition.EngineText: recognition.TextRecognizer{},
		recognition.EnginePDF:  recognition.NewPDFRecognizer(logger),
	}

	if ocr, err := recognition.NewOCRRecognizer(cfg.Language, logger); err == nil {
		registry[recognition.EngineOCR] = ocr
	} else {
		logger.Warn("OCR engine unavailable", slog.String("error", err.Error()))
	}

	if cfg.VisionAPIKey != "" {
		registry[recognition.EngineVision] = recognition.NewVisionRecognizer(recognition.VisionConfig{
			BaseURL: cfg.VisionBaseURL,
			Model:   cfg.VisionModel,
			APIKey:  cfg.VisionAPIKey,
			Timeout: cfg.Timeout,
		}, logger)
	}
	return registry
}

// InferenceOptions converts the inference configuration
func InferenceOptions(cfg config.InferenceConfig) inference.Options {
	opts := inference.DefaultOptions()
	if p := inference.OverflowPolicy(cfg.Overflow); p.Valid() {
		opts.Overflow = p
	}
	opts.HeaderFromFirstRow = cfg.HeaderFromFirstRow
	if cfg.CurrencySymbol != "" {
		opts.CurrencySymbol = cfg.CurrencySymbol
	}
	opts.Delimiter = cfg.Delimiter
	return opts
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics); err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))

	// The websocket route skips the body and header middleware, which would
	// otherwise wrap the hijacked connection
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.ConverterService,
		ws.NewUpgrader(a.Config.WebSocket.ReadBufferSize, a.Config.WebSocket.WriteBufferSize, a.Config.Security.AllowedOrigins),
		a.ErrorHandler, a.Logger)
	r.Get("/ws/sessions/{id}", wsHandler.ServeSession)

	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		// multipart overhead on top of the document itself
		r.Use(customMiddleware.MaxBodySize(a.Config.Server.MaxUploadBytes + 1<<20))

		a.setupAPIRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.ErrorHandler.HandleError(w, r, apierrors.New(http.StatusNotFound, "NOT_FOUND", "No route matches "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.ErrorHandler.HandleError(w, r, apierrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			r.Method+" is not allowed on "+r.URL.Path))
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler, a.Config.Server.MaxUploadBytes)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(validator.ValidateRequest)

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		sessionHandler := handlers.NewSessionHandler(a.ConverterService, a.ErrorHandler, a.Config.Server.MaxUploadBytes, a.Logger)
		r.Mount("/sessions", sessionHandler.Routes())
	})
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

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.Any("engines", a.Engines),
		slog.Bool("sheets_enabled", a.ConverterService.SheetsEnabled()))

	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.sweepSessions(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "Received shutdown signal")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// sweepSessions expires idle sessions until ctx is done
func (a *Application) sweepSessions(ctx context.Context) {
	interval := a.Config.Sessions.SweepInterval
	if interval <= 0 || a.Config.Sessions.IdleTTL <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.ConverterService.ExpireIdle(ctx, a.Config.Sessions.IdleTTL); n > 0 {
				a.Logger.InfoContext(ctx, "expired idle sessions", slog.Int("count", n))
			}
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

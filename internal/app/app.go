package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/Notifuse/mailblocks/config"
	"github.com/Notifuse/mailblocks/internal/database"
	"github.com/Notifuse/mailblocks/internal/domain"
	httpHandler "github.com/Notifuse/mailblocks/internal/http"
	"github.com/Notifuse/mailblocks/internal/http/middleware"
	"github.com/Notifuse/mailblocks/internal/repository"
	"github.com/Notifuse/mailblocks/internal/service"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/cache"
	"github.com/Notifuse/mailblocks/pkg/logger"
	"github.com/Notifuse/mailblocks/pkg/mailer"
	"github.com/Notifuse/mailblocks/pkg/ratelimiter"
	"github.com/Notifuse/mailblocks/pkg/tracing"
)

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	Start() error
	Shutdown(ctx context.Context) error

	// Getters for app components accessed in tests
	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetMux() *http.ServeMux
	GetDB() *sql.DB
	GetMailer() mailer.Mailer
	GetRegistry() *blocks.Registry
	GetTemplateRepository() domain.TemplateRepository

	// Server status methods
	IsServerCreated() bool
	WaitForServerStart(ctx context.Context) bool

	// Methods for initialization steps
	InitDB() error
	InitMailer() error
	InitTracing() error
	InitRepositories() error
	InitServices() error
	InitHandlers() error

	// Graceful shutdown methods
	SetShutdownTimeout(timeout time.Duration)
	GetActiveRequestCount() int64
	GetShutdownContext() context.Context
}

// App encapsulates the application dependencies and configuration
type App struct {
	config  *config.Config
	logger  logger.Logger
	db      *sql.DB
	mailer  mailer.Mailer
	limiter *ratelimiter.RateLimiter

	// compiled MJML output by digest
	compileCache *cache.InMemoryCache[string]

	registry *blocks.Registry

	templateRepo domain.TemplateRepository

	authService     *service.AuthService
	templateService *service.TemplateService
	editorService   *service.EditorService

	// HTTP handlers
	mux    *http.ServeMux
	server *http.Server

	// Server synchronization
	serverMu      sync.RWMutex
	serverStarted chan struct{}

	// Graceful shutdown management
	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64
	requestWg       sync.WaitGroup
	shutdownTimeout time.Duration
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithMockMailer configures the app to use a mock mailer
func WithMockMailer(m mailer.Mailer) AppOption {
	return func(a *App) {
		a.mailer = m
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	app := &App{
		config:          cfg,
		logger:          logger.NewLoggerWithLevel(cfg.LogLevel),
		mux:             http.NewServeMux(),
		serverStarted:   make(chan struct{}),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
		shutdownTimeout: shutdownTimeout,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing
func (a *App) InitTracing() error {
	if err := tracing.InitTracing(&a.config.Tracing, a.logger); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return nil
}

// InitDB initializes the database connection
func (a *App) InitDB() error {
	// Skip if db already set (e.g., by mock)
	if a.db != nil {
		return nil
	}

	password := a.config.Database.Password
	maskedPassword := ""
	if len(password) > 0 {
		maskedPassword = fmt.Sprintf("%c...%c", password[0], password[len(password)-1])
	}
	a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s",
		a.config.Database.Host, a.config.Database.Port, a.config.Database.User,
		a.config.Database.SSLMode, maskedPassword, a.config.Database.DBName))

	db, err := database.Connect(a.config, a.logger)
	if err != nil {
		a.logger.Error(err.Error())
		return err
	}

	a.db = db
	return nil
}

// InitMailer initializes the mailer used for test sends
func (a *App) InitMailer() error {
	// Skip if mailer already set (e.g., by mock)
	if a.mailer != nil {
		return nil
	}

	if a.config.SMTP.Host == "" {
		a.mailer = mailer.NewConsoleMailer(a.logger)
		a.logger.Info("SMTP host not configured, using console mailer")
		return nil
	}

	a.mailer = mailer.NewSMTPMailer(&mailer.Config{
		SMTPHost:     a.config.SMTP.Host,
		SMTPPort:     a.config.SMTP.Port,
		SMTPUsername: a.config.SMTP.Username,
		SMTPPassword: a.config.SMTP.Password,
		FromEmail:    a.config.SMTP.FromEmail,
		FromName:     a.config.SMTP.FromName,
		UseTLS:       a.config.SMTP.UseTLS,
	})
	a.logger.WithField("smtp_host", a.config.SMTP.Host).Info("Using SMTP mailer")
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	a.templateRepo = repository.NewTemplateRepository(a.db)
	return nil
}

// exportDefaults merges the configured container and clients over the built-in defaults
func (a *App) exportDefaults(compat *blocks.Compatibility) (blocks.ExportOptions, error) {
	opts := blocks.DefaultExportOptions()
	exportCfg := a.config.Export

	if exportCfg.ContainerMaxWidth != "" {
		if err := blocks.ValidateCSSUnit(exportCfg.ContainerMaxWidth); err != nil {
			return opts, fmt.Errorf("invalid EXPORT_CONTAINER_MAX_WIDTH: %w", err)
		}
		opts.ContainerStyles.MaxWidth = exportCfg.ContainerMaxWidth
	}
	if exportCfg.ContainerPadding != "" {
		opts.ContainerStyles.Padding = exportCfg.ContainerPadding
	}
	if exportCfg.ContainerBackgroundColor != "" {
		if err := blocks.ValidateColor(exportCfg.ContainerBackgroundColor); err != nil {
			return opts, fmt.Errorf("invalid EXPORT_CONTAINER_BACKGROUND_COLOR: %w", err)
		}
		opts.ContainerStyles.BackgroundColor = exportCfg.ContainerBackgroundColor
	}
	for _, client := range exportCfg.EmailClients {
		if !compat.HasClient(client) {
			return opts, fmt.Errorf("invalid EXPORT_EMAIL_CLIENTS: unknown client %q", client)
		}
	}
	if len(exportCfg.EmailClients) > 0 {
		opts.EmailClients = exportCfg.EmailClients
	}
	return opts, nil
}

// InitServices initializes all services
func (a *App) InitServices() error {
	a.registry = blocks.NewRegistry(a.logger)
	if err := a.registry.InitializeBuiltins(); err != nil {
		return fmt.Errorf("failed to register built-in blocks: %w", err)
	}

	authService, err := service.NewAuthService(service.AuthServiceConfig{
		Secret:   a.config.Security.JWTSecret,
		Issuer:   a.config.Security.JWTIssuer,
		Audience: a.config.Security.JWTAudience,
		TokenTTL: a.config.Security.TokenTTL,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	a.authService = authService

	compat := blocks.NewCompatibility()
	defaults, err := a.exportDefaults(compat)
	if err != nil {
		return err
	}
	exporter := blocks.NewExporter(
		blocks.NewRenderer(blocks.WithCompatibility(compat)),
		blocks.WithExportLogger(a.logger),
	)

	if a.limiter == nil {
		a.limiter = ratelimiter.NewRateLimiter()
	}
	a.limiter.SetPolicy(ratelimiter.NamespaceSendTest, a.config.RateLimit.SendTestPerHour, time.Hour)
	a.limiter.SetPolicy(ratelimiter.NamespaceCompile, a.config.RateLimit.CompilePerMinute, time.Minute)

	var compileCache service.CompileCache
	if a.config.Export.CompileCacheTTL > 0 {
		if a.compileCache == nil {
			a.compileCache = cache.NewInMemoryCache[string](cache.WithMaxEntries(a.config.Export.CompileCacheSize))
		}
		compileCache = a.compileCache
	}

	a.templateService = service.NewTemplateService(service.TemplateServiceConfig{
		Repository:            a.templateRepo,
		AuthService:           a.authService,
		Exporter:              exporter,
		Mailer:                a.mailer,
		Logger:                a.logger,
		Tracer:                tracing.GetTracer(),
		ExportDefaults:        defaults,
		MaxConcurrentCompiles: a.config.Export.MaxConcurrentCompiles,
		CompileTimeout:        a.config.Export.CompileTimeout,
		Limiter:               a.limiter,
		CompileCache:          compileCache,
		CompileCacheTTL:       a.config.Export.CompileCacheTTL,
	})

	a.editorService = service.NewEditorService(a.registry, a.logger)
	return nil
}

// InitHandlers initializes all HTTP handlers and routes
func (a *App) InitHandlers() error {
	// Create a new ServeMux to avoid route conflicts on restart
	a.mux = http.NewServeMux()

	var pinger httpHandler.Pinger
	if a.db != nil {
		pinger = a.db
	}
	healthHandler := httpHandler.NewHealthHandler(pinger, a.config.Version)
	blockHandler := httpHandler.NewBlockHandler(a.editorService, a.authService, a.logger)
	templateHandler := httpHandler.NewTemplateHandler(a.templateService, a.authService, a.logger)

	healthHandler.RegisterRoutes(a.mux)
	blockHandler.RegisterRoutes(a.mux)
	templateHandler.RegisterRoutes(a.mux)

	return nil
}

// Handler returns the mux wrapped with the server middleware chain
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	// Apply graceful shutdown middleware first (innermost of the chain)
	handler = a.gracefulShutdownMiddleware(handler)

	if a.config.Tracing.Enabled {
		handler = middleware.TracingMiddleware(handler)
	}

	return middleware.NewCORSMiddleware(a.config.Server.CORSOrigins)(handler)
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).Info(fmt.Sprintf("Server starting on %s", addr))

	a.serverMu.Lock()
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverStarted := a.serverStarted
	a.serverMu.Unlock()

	// Signal that the server has been created and is about to start
	close(serverStarted)

	var err error
	if a.config.Server.SSL.Enabled {
		a.logger.WithField("cert_file", a.config.Server.SSL.CertFile).Info("SSL enabled")
		err = a.server.ListenAndServeTLS(a.config.Server.SSL.CertFile, a.config.Server.SSL.KeyFile)
	} else {
		err = a.server.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")

	// Signal shutdown to all components
	a.shutdownCancel()

	a.serverMu.RLock()
	server := a.server
	a.serverMu.RUnlock()

	if server == nil {
		a.logger.Info("No server to shutdown")
		return a.cleanupResources()
	}

	a.logger.WithField("active_requests", a.getActiveRequestCount()).Info("Active requests at shutdown start")

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Warn("HTTP server shutdown did not complete cleanly")
	}

	// Wait for in flight requests that outlived the listener
	done := make(chan struct{})
	go func() {
		a.requestWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("All requests completed")
	case <-shutdownCtx.Done():
		a.logger.WithField("active_requests", a.getActiveRequestCount()).Warn("Shutdown timeout reached, forcing shutdown")
	}

	if err := a.cleanupResources(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}
	return shutdownErr
}

// cleanupResources handles cleanup of database and other resources
func (a *App) cleanupResources() error {
	a.logger.Info("Cleaning up resources...")

	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.compileCache != nil {
		a.compileCache.Stop()
	}

	if a.db != nil {
		if a.config.Tracing.Enabled {
			if err := ocsql.RecordStats(a.db, 5*time.Second); err != nil {
				a.logger.WithField("error", err.Error()).Error("Failed to record final database stats for tracing")
			}
		}

		a.logger.Info("Closing database connection")
		if err := a.db.Close(); err != nil {
			a.logger.WithField("error", err.Error()).Error("Error closing database connection")
			return err
		}
	}

	a.logger.Info("Resource cleanup completed")
	return nil
}

// IsServerCreated safely checks if the server has been created
func (a *App) IsServerCreated() bool {
	a.serverMu.RLock()
	defer a.serverMu.RUnlock()
	return a.server != nil
}

// WaitForServerStart waits for the server to be created and initialized.
// Returns true if the server started successfully, false if context expired.
func (a *App) WaitForServerStart(ctx context.Context) bool {
	a.serverMu.RLock()
	started := a.serverStarted
	a.serverMu.RUnlock()

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting Mailblocks application")

	if err := a.InitTracing(); err != nil {
		return err
	}

	if err := a.InitDB(); err != nil {
		return err
	}

	if err := a.InitMailer(); err != nil {
		return err
	}

	if err := a.InitRepositories(); err != nil {
		return err
	}

	if err := a.InitServices(); err != nil {
		return err
	}

	if err := a.InitHandlers(); err != nil {
		return err
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

// GetConfig returns the app's configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetLogger returns the app's logger
func (a *App) GetLogger() logger.Logger {
	return a.logger
}

// GetMux returns the app's HTTP multiplexer
func (a *App) GetMux() *http.ServeMux {
	return a.mux
}

// GetDB returns the app's database connection
func (a *App) GetDB() *sql.DB {
	return a.db
}

// GetMailer returns the app's mailer
func (a *App) GetMailer() mailer.Mailer {
	return a.mailer
}

func (a *App) GetRegistry() *blocks.Registry {
	return a.registry
}

func (a *App) GetTemplateRepository() domain.TemplateRepository {
	return a.templateRepo
}

func (a *App) incrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, 1)
	a.requestWg.Add(1)
}

func (a *App) decrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, -1)
	a.requestWg.Done()
}

func (a *App) getActiveRequestCount() int64 {
	return atomic.LoadInt64(&a.activeRequests)
}

// GetActiveRequestCount returns the current number of active requests
func (a *App) GetActiveRequestCount() int64 {
	return a.getActiveRequestCount()
}

// SetShutdownTimeout sets the timeout for graceful shutdown
func (a *App) SetShutdownTimeout(timeout time.Duration) {
	a.shutdownTimeout = timeout
	a.logger.WithField("shutdown_timeout", timeout).Info("Shutdown timeout configured")
}

// GetShutdownContext returns the shutdown context for components that need to watch for shutdown
func (a *App) GetShutdownContext() context.Context {
	return a.shutdownCtx
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdownCtx.Done():
		return true
	default:
		return false
	}
}

// gracefulShutdownMiddleware rejects new requests once shutdown has begun and
// tracks the ones in flight
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			httpHandler.WriteJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		a.incrementActiveRequests()
		defer a.decrementActiveRequests()

		next.ServeHTTP(w, r)
	})
}

// Ensure App implements AppInterface
var _ AppInterface = (*App)(nil)

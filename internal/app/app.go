package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/internal/database"
	"github.com/Notifuse/designer/internal/domain"
	httpHandler "github.com/Notifuse/designer/internal/http"
	"github.com/Notifuse/designer/internal/http/middleware"
	"github.com/Notifuse/designer/internal/migrations"
	"github.com/Notifuse/designer/internal/repository"
	"github.com/Notifuse/designer/internal/service"
	"github.com/Notifuse/designer/internal/storage"
	"github.com/Notifuse/designer/pkg/devinbox"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/mailer"
	"github.com/Notifuse/designer/pkg/sharelink"
	"github.com/Notifuse/designer/pkg/tracing"
	"github.com/Notifuse/designer/pkg/webhook"
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
	GetTemplateRepository() domain.TemplateRepository
	GetEditorService() domain.EditorService
	GetExportService() domain.ExportService

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

type contextKey string

// ShutdownContextKey holds the app shutdown context in every request context
const ShutdownContextKey contextKey = "shutdown_ctx"

// App encapsulates the application dependencies and configuration
type App struct {
	config   *config.Config
	logger   logger.Logger
	db       *sql.DB
	mailer   mailer.Mailer
	tracing  *tracing.Provider
	dbStats  func()
	devInbox *devinbox.Inbox

	// Repositories
	templateRepo domain.TemplateRepository

	// Services
	templateService *service.TemplateService
	editorService   *service.EditorService
	exportService   *service.ExportService

	// Background servers
	devInboxServer *devinbox.Server
	metricsServer  *http.Server

	// HTTP handlers
	mux    *http.ServeMux
	server *http.Server

	// Server synchronization
	serverMu      sync.RWMutex
	serverStarted chan struct{}

	// Graceful shutdown management
	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64          // atomic counter for active HTTP requests
	requestWg       sync.WaitGroup // wait group for active requests
	shutdownTimeout time.Duration  // configurable shutdown timeout
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
		config: cfg,
		logger: logger.NewLoggerWithOptions(logger.Options{
			Level:  cfg.LogLevel,
			Pretty: cfg.LogPretty,
		}),
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

// InitTracing initializes the OpenCensus exporters
func (a *App) InitTracing() error {
	provider, err := tracing.Init(&a.config.Tracing, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracing = provider
	return nil
}

// InitDB connects to the template store, creates the schema and runs migrations
func (a *App) InitDB() error {
	// Skip if db already set (e.g., by mock)
	if a.db != nil {
		return nil
	}

	dbCfg := &a.config.Database
	if dbCfg.Driver == "sqlite" {
		a.logger.Info(fmt.Sprintf("Opening sqlite database %s", dbCfg.Path))
	} else {
		maskedPassword := ""
		if len(dbCfg.Password) > 0 {
			maskedPassword = fmt.Sprintf("%c...%c", dbCfg.Password[0], dbCfg.Password[len(dbCfg.Password)-1])
		}
		a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s",
			dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.SSLMode, maskedPassword, dbCfg.DBName))
	}

	db, err := database.Connect(dbCfg, a.config.Tracing.Enabled, a.logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := database.InitializeDatabase(ctx, db, dbCfg.Driver); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	migrationManager := migrations.NewManager(a.logger, dbCfg.Driver)
	if err := migrationManager.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if a.config.Tracing.Enabled {
		a.dbStats = ocsql.RecordStats(db, 5*time.Second)
	}

	a.db = db
	return nil
}

// InitMailer picks where test emails go: the dev inbox when enabled, the
// configured SMTP server, or the log when neither is set
func (a *App) InitMailer() error {
	if a.config.DevInbox.Enabled {
		a.initDevInbox()
	}

	// Skip if mailer already set (e.g., by mock)
	if a.mailer != nil {
		return nil
	}

	switch {
	case a.devInboxServer != nil:
		a.mailer = mailer.NewSMTPMailer(&mailer.Config{
			Host:      a.config.DevInbox.Host,
			Port:      a.config.DevInbox.Port,
			Username:  a.config.DevInbox.Username,
			Password:  a.config.DevInbox.Password,
			FromEmail: a.config.SMTP.FromEmail,
			FromName:  a.config.SMTP.FromName,
		})
		a.logger.Info("Using dev inbox for test emails")
	case a.config.SMTP.Host == "":
		a.mailer = mailer.NewConsoleMailer(a.logger)
		a.logger.Info("SMTP_HOST is not set, test emails are logged")
	default:
		a.mailer = mailer.NewSMTPMailer(&mailer.Config{
			Host:      a.config.SMTP.Host,
			Port:      a.config.SMTP.Port,
			Username:  a.config.SMTP.Username,
			Password:  a.config.SMTP.Password,
			FromEmail: a.config.SMTP.FromEmail,
			FromName:  a.config.SMTP.FromName,
		})
		a.logger.WithField("smtp_host", a.config.SMTP.Host).Info("Using SMTP mailer for test emails")
	}

	return nil
}

func (a *App) initDevInbox() {
	a.devInbox = devinbox.NewInbox(a.config.DevInbox.Capacity)
	a.devInboxServer = devinbox.NewServer(devinbox.ServerConfig{
		Host:         a.config.DevInbox.Host,
		Port:         a.config.DevInbox.Port,
		Username:     a.config.DevInbox.Username,
		PasswordHash: a.config.DevInbox.PasswordHash,
		Logger:       a.logger,
	}, a.devInbox)
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.templateRepo = repository.NewTemplateRepository(a.db, a.config.Database.Driver)
	return nil
}

// InitServices initializes all application services
func (a *App) InitServices() error {
	if a.templateRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	a.templateService = service.NewTemplateService(a.templateRepo, a.logger)

	a.editorService = service.NewEditorService(a.templateService, a.logger, service.EditorServiceConfig{
		HistoryLimit:     a.config.Editor.HistoryLimit,
		AutoSaveInterval: a.config.Editor.AutoSaveInterval,
		SessionIdleTTL:   a.config.Editor.SessionIdleTTL,
	})

	var exportOpts []service.ExportOption

	if a.config.PublishEnabled() {
		store, err := storage.NewS3ArtifactStore(&a.config.Storage, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize artifact store: %w", err)
		}
		exportOpts = append(exportOpts, service.WithArtifactStore(store))
		a.logger.WithField("bucket", a.config.Storage.Bucket).Info("Publishing enabled")
	}

	if a.config.Webhook.URL != "" {
		sender, err := webhook.NewSender(a.config.Webhook.URL, a.config.Webhook.Secret, tracing.WrapHTTPClient(nil), a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize webhook sender: %w", err)
		}
		exportOpts = append(exportOpts, service.WithEventPublisher(sender))
	}

	if a.config.Share.Secret != "" {
		signer, err := sharelink.NewSigner(a.config.Share.Secret, a.config.Share.TTL)
		if err != nil {
			return fmt.Errorf("failed to initialize share links: %w", err)
		}
		exportOpts = append(exportOpts, service.WithShareSigner(signer))
	}

	if a.devInbox != nil {
		exportOpts = append(exportOpts, service.WithDevInbox(a.devInbox))
	}

	a.exportService = service.NewExportService(
		a.templateService,
		a.editorService,
		a.mailer,
		a.logger,
		service.ExportServiceConfig{
			APIEndpoint:     a.config.APIEndpoint,
			MaxWidth:        a.config.Export.MaxWidth,
			Breakpoint:      a.config.Export.Breakpoint,
			CacheTTL:        a.config.Export.CacheTTL,
			CacheMaxEntries: a.config.Export.CacheMaxEntries,
			MergeTagTimeout: a.config.Export.MergeTagTimeout,
			TestEmailLimit:  a.config.SMTP.TestEmailLimit,
			TestEmailWindow: a.config.SMTP.TestEmailWindow,
		},
		exportOpts...,
	)

	if err := a.editorService.Start(); err != nil {
		return fmt.Errorf("failed to start editor scheduler: %w", err)
	}

	return nil
}

// InitHandlers registers every route on a fresh mux
func (a *App) InitHandlers() error {
	// Create a new ServeMux to avoid route conflicts on restart
	a.mux = http.NewServeMux()

	var pinger httpHandler.Pinger
	if a.db != nil {
		pinger = a.db
	}

	rootHandler := httpHandler.NewRootHandler(a.logger, a.config.APIEndpoint, a.config.Version, httpHandler.Features{
		Publish:  a.config.PublishEnabled(),
		Share:    a.config.Share.Secret != "",
		DevInbox: a.devInbox != nil,
	}, pinger)
	templateHandler := httpHandler.NewTemplateHandler(a.templateService, a.logger)
	editorHandler := httpHandler.NewEditorHandler(a.editorService, a.logger, a.config.Server.CORSOrigin)
	exportHandler := httpHandler.NewExportHandler(a.exportService, a.logger)

	// Register routes
	rootHandler.RegisterRoutes(a.mux)
	templateHandler.RegisterRoutes(a.mux)
	editorHandler.RegisterRoutes(a.mux)
	exportHandler.RegisterRoutes(a.mux)

	return nil
}

// Start starts the HTTP server
func (a *App) Start() error {
	var handler http.Handler = a.mux

	// Apply graceful shutdown middleware first (innermost)
	handler = a.gracefulShutdownMiddleware(handler)

	if a.config.Tracing.Enabled {
		handler = middleware.TracingMiddleware(handler)
		a.logger.Info("OpenCensus tracing middleware enabled")
	}

	handler = middleware.CORSMiddleware(a.config.Server.CORSOrigin)(handler)

	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).
		WithField("api_endpoint", a.config.APIEndpoint).
		Info(fmt.Sprintf("Server starting on %s with API endpoint: %s", addr, a.config.APIEndpoint))

	a.serverMu.Lock()
	if a.serverStarted != nil {
		close(a.serverStarted)
	}
	a.serverStarted = make(chan struct{})

	a.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverStarted := a.serverStarted
	a.serverMu.Unlock()

	close(serverStarted)

	a.startBackgroundServers()

	if a.config.Server.SSL.Enabled {
		a.logger.WithField("cert_file", a.config.Server.SSL.CertFile).Info("SSL enabled")
		return a.server.ListenAndServeTLS(a.config.Server.SSL.CertFile, a.config.Server.SSL.KeyFile)
	}

	return a.server.ListenAndServe()
}

// startBackgroundServers runs the dev inbox and the Prometheus scrape endpoint
func (a *App) startBackgroundServers() {
	if a.devInboxServer != nil {
		go func() {
			if err := a.devInboxServer.Start(); err != nil {
				a.logger.WithField("error", err.Error()).Error("Dev inbox stopped")
			}
		}()
	}

	if a.tracing != nil && a.tracing.MetricsHandler() != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", a.tracing.MetricsHandler())

		a.serverMu.Lock()
		a.metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Tracing.PrometheusPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		metricsServer := a.metricsServer
		a.serverMu.Unlock()

		go func() {
			a.logger.WithField("address", metricsServer.Addr).Info("Prometheus metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithField("error", err.Error()).Error("Metrics server stopped")
			}
		}()
	}
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
		return a.cleanupResources(ctx)
	}

	activeCount := a.getActiveRequestCount()
	a.logger.WithField("active_requests", activeCount).Info("Active requests at shutdown start")

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		// Use the provided context deadline if it's sooner than our default timeout
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining - time.Second // Leave 1 second buffer
			if shutdownTimeout < 0 {
				shutdownTimeout = 0
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	serverShutdownDone := make(chan error, 1)
	go func() {
		a.logger.WithField("timeout", shutdownTimeout).Info("Starting HTTP server shutdown")
		serverShutdownDone <- server.Shutdown(shutdownCtx)
	}()

	requestsDone := make(chan struct{}, 1)
	go func() {
		defer close(requestsDone)

		a.logger.Info("Waiting for active requests to complete...")
		done := make(chan struct{})

		go func() {
			a.requestWg.Wait()
			close(done)
		}()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				a.logger.Info("All requests completed")
				return
			case <-ticker.C:
				a.logger.WithField("active_requests", a.getActiveRequestCount()).Info("Still waiting for requests to complete...")
			case <-shutdownCtx.Done():
				a.logger.WithField("active_requests", a.getActiveRequestCount()).Warn("Shutdown timeout reached, forcing shutdown")
				return
			}
		}
	}()

	var shutdownErr error

	select {
	case err := <-serverShutdownDone:
		shutdownErr = err
		a.logger.Info("HTTP server shutdown completed")
	case <-shutdownCtx.Done():
		a.logger.Warn("Shutdown timeout reached")
		shutdownErr = fmt.Errorf("shutdown timeout exceeded")
	}

	if shutdownErr == nil {
		select {
		case <-requestsDone:
		case <-time.After(2 * time.Second):
			if activeCount := a.getActiveRequestCount(); activeCount > 0 {
				a.logger.WithField("active_requests", activeCount).Warn("Some requests still active, proceeding with shutdown")
			}
		}
	}

	if cleanupErr := a.cleanupResources(shutdownCtx); cleanupErr != nil {
		a.logger.WithField("error", cleanupErr.Error()).Error("Error during resource cleanup")
		if shutdownErr == nil {
			shutdownErr = cleanupErr
		}
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}

	return shutdownErr
}

// cleanupResources flushes open editor sessions, then stops background
// servers and closes the database
func (a *App) cleanupResources(ctx context.Context) error {
	a.logger.Info("Cleaning up resources...")

	// Dirty sessions are saved here, so the database must still be open
	if a.editorService != nil {
		a.logger.Info("Stopping editor sessions")
		a.editorService.Stop(ctx)
	}

	if a.exportService != nil {
		a.exportService.Stop()
	}

	if a.devInboxServer != nil {
		if err := a.devInboxServer.Shutdown(ctx); err != nil {
			a.logger.WithField("error", err.Error()).Error("Error stopping dev inbox")
		}
	}

	a.serverMu.RLock()
	metricsServer := a.metricsServer
	a.serverMu.RUnlock()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			a.logger.WithField("error", err.Error()).Error("Error stopping metrics server")
		}
	}

	if a.tracing != nil {
		a.tracing.Shutdown()
	}

	if a.dbStats != nil {
		a.dbStats()
	}

	if a.db != nil {
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

	if started == nil {
		a.logger.Error("serverStarted channel is nil - server initialization error")
		<-ctx.Done()
		return false
	}

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting email designer")

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

func (a *App) GetTemplateRepository() domain.TemplateRepository {
	return a.templateRepo
}

func (a *App) GetEditorService() domain.EditorService {
	if a.editorService == nil {
		return nil
	}
	return a.editorService
}

func (a *App) GetExportService() domain.ExportService {
	if a.exportService == nil {
		return nil
	}
	return a.exportService
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

// gracefulShutdownMiddleware rejects new requests once shutdown starts and
// tracks the ones in flight
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			httpHandler.WriteJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		a.incrementActiveRequests()
		defer a.decrementActiveRequests()

		ctx := context.WithValue(r.Context(), ShutdownContextKey, a.shutdownCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Ensure App implements AppInterface
var _ AppInterface = (*App)(nil)

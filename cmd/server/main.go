package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/nexleads/internal"
	"github.com/DukeRupert/nexleads/internal/billing"
	"github.com/DukeRupert/nexleads/internal/email"
	"github.com/DukeRupert/nexleads/internal/handler"
	"github.com/DukeRupert/nexleads/internal/jobs"
	"github.com/DukeRupert/nexleads/internal/leadsource"
	"github.com/DukeRupert/nexleads/internal/metrics"
	"github.com/DukeRupert/nexleads/internal/middleware"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/DukeRupert/nexleads/internal/service"
	"github.com/DukeRupert/nexleads/internal/storage"
	"github.com/DukeRupert/nexleads/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return fmt.Errorf("mailer initialization failed: %w", err)
	}

	files, localFiles, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("lead source initialization failed: %w", err)
	}

	var billingService billing.Service
	if cfg.BillingEnabled() {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProPriceID:      cfg.StripeProPriceID,
			PlatinumPriceID: cfg.StripePlatinumPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing not configured; checkout is disabled")
	}

	limiterFactory := middleware.LimiterFactory(middleware.MemoryLimiters)
	if cfg.RedisURL != "" {
		client, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer client.Close()
		limiterFactory = middleware.RedisLimiters(client)
		logger.Info("Rate limits shared via redis")
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(repo, tokens, service.UserServiceConfig{MailDomain: cfg.MailDomain}, logger)
	quotaService := service.NewQuotaService(service.NewLedgerStore(db, repo), logger)
	leadService := service.NewLeadService(repo, quotaService, fetcher, logger)
	emailService := service.NewEmailService(repo, mailer, files, repo, service.EmailServiceConfig{
		APIBaseURL:  cfg.APIBaseURL,
		Concurrency: cfg.SendConcurrency,
	}, logger)
	projectService := service.NewProjectService(repo, logger)
	followUpService := service.NewFollowUpService(repo, emailService, logger)
	dashboardService := service.NewDashboardService(repo, quotaService, logger)
	adminService := service.NewAdminService(repo, quotaService, logger)
	pictureService := service.NewProfilePictureService(userService, files, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		bgWorker, err = worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewDeliverEmailHandler(emailService, logger))
		bgWorker.Start(ctx)
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	authMw := middleware.NewAuthMiddleware(userService, cfg.AdminEmails, logger)
	authLimiter := middleware.NewAuthRateLimiter(limiterFactory, logger)
	requireUser := authMw.RequireUser
	requirePaid := middleware.Stack(authMw.RequireUser, authMw.RequirePaidPlan)
	requireAdmin := middleware.Stack(authMw.RequireUser, authMw.RequireAdmin)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Locally stored uploads
	if localFiles != nil {
		fileServer := http.FileServer(http.Dir(localFiles.BasePath()))
		mux.Handle("GET /files/", http.StripPrefix("/files/", fileServer))
	}

	handler.NewAuthHandler(userService, mailer, handler.AuthLimits{
		Login:         authLimiter.LimitLogin,
		Signup:        authLimiter.LimitSignup,
		PasswordReset: authLimiter.LimitPasswordReset,
		Resetter:      authLimiter,
	}, logger).RegisterRoutes(mux, requireUser)
	handler.NewLeadHandler(leadService, logger).RegisterRoutes(mux, requireUser)
	handler.NewEmailHandler(emailService, logger).RegisterRoutes(mux, requireUser, requirePaid)
	handler.NewProjectHandler(projectService, logger).RegisterRoutes(mux, requireUser)
	handler.NewFollowUpHandler(followUpService, logger).RegisterRoutes(mux, requireUser)
	handler.NewSettingsHandler(userService, pictureService, quotaService, logger).RegisterRoutes(mux, requireUser)
	handler.NewDashboardHandler(dashboardService, logger).RegisterRoutes(mux, requireUser)
	handler.NewBillingHandler(billingService, userService, cfg.FrontendURL, logger).RegisterRoutes(mux, requireUser)
	handler.NewWebhookHandler(billingService, userService, quotaService, logger).RegisterRoutes(mux)
	handler.NewAdminHandler(adminService, logger).RegisterRoutes(mux, requireAdmin)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Global middleware, outermost first.
	security := middleware.NewSecurityHeadersMiddleware(!cfg.IsDevelopment(), cfg.FrontendURL)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	root := middleware.Stack(
		security.Handler,
		requestLogging.Handler,
		metrics.Middleware,
		authMw.WithUser,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func newMailer(cfg *internal.Config, logger *slog.Logger) (email.Mailer, error) {
	if cfg.SMTPDisabled {
		logger.Warn("SMTP disabled; emails are logged instead of sent")
		return email.NewLogMailer(logger), nil
	}
	return email.NewSMTPMailer(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.FrontendURL, logger)
}

// newStorage returns the configured object store. The local store is also
// returned on its own so its directory can be served.
func newStorage(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (storage.Storage, *storage.LocalStorage, error) {
	if cfg.StorageProvider == "s3" {
		s3, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicURL:       cfg.S3PublicURL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using S3 storage", "bucket", cfg.S3Bucket)
		return s3, nil, nil
	}

	local, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using local storage", "path", cfg.LocalStoragePath)
	return local, local, nil
}

func newFetcher(cfg *internal.Config, logger *slog.Logger) (leadsource.Fetcher, error) {
	if cfg.LeadSource == "mock" {
		logger.Warn("Using mock lead source")
		return leadsource.NewMockFetcher(logger), nil
	}
	return leadsource.NewHTTPFetcher(leadsource.HTTPConfig{
		URLTemplate: cfg.LeadSourceURL,
		APIKey:      cfg.LeadSourceAPIKey,
		Config: leadsource.Config{
			MaxRetries:     cfg.LeadSourceMaxRetries,
			RetryBaseDelay: cfg.LeadSourceRetryBaseDelay,
			RequestTimeout: cfg.LeadSourceRequestTimeout,
		},
	}, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

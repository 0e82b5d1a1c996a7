package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gbertoni/varco/internal/auth"
	"github.com/gbertoni/varco/internal/background"
	"github.com/gbertoni/varco/internal/config"
	"github.com/gbertoni/varco/internal/database"
	"github.com/gbertoni/varco/internal/handlers"
	middlewareCustom "github.com/gbertoni/varco/internal/middleware"
	"github.com/gbertoni/varco/internal/provisioning"
	"github.com/gbertoni/varco/internal/repositories"
	"github.com/gbertoni/varco/internal/routes"
	"github.com/gbertoni/varco/internal/services"
	"github.com/gbertoni/varco/migrations"
	pkghttp "github.com/gbertoni/varco/pkg/http"
	pkglogger "github.com/gbertoni/varco/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.Migrate(migrateCtx, migrations.FS); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)

	// Audit retention
	retentionManager := background.NewRetentionManager(
		loginAttemptRepo,
		logger,
		cfg.Auth.AttemptRetention,
		cfg.Auth.RetentionSweep,
	)

	// Token manager for session tokens
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// AWS SES code delivery
	codeSender, err := services.NewAWSSESCodeSender(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize code sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(
		userRepo,
		loginAttemptRepo,
		codeSender,
		tokenManager,
		timingDelay,
		services.PolicyConfig{
			LockoutThreshold: cfg.Auth.LockoutThreshold,
			OTPExpiry:        cfg.Auth.OTPExpiry,
			OTPLength:        cfg.Auth.OTPLength,
		},
		logger,
		auditLogger,
	)
	adminService := services.NewAdminService(
		userRepo,
		loginAttemptRepo,
		cfg.Auth.TempPasswordLength,
		logger,
		auditLogger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Provision the administrator account on first run
	provisionCtx, provisionCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := provisioning.EnsureAdmin(provisionCtx, userRepo, cfg.Admin, logger); err != nil {
		provisionCancel()
		logger.Error("failed to provision admin account", slog.Any("error", err))
		os.Exit(1)
	}
	provisionCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, tokenManager, userRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start retention task
	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()

	go retentionManager.Start(retentionCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	retentionCancel()
	retentionManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appforecast "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/forecast"
	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/forecast"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/config"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/migration"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/queue"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/scheduler"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/storefront"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/handler"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/middleware"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/router"
	"github.com/MerlinStacks/woodash-dashboard-sub007/migrations"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.NewForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting inventory sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	telemetry.ServiceVersion = version
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		log = logsProvider.Bridge(log, level)
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		Exporter:          cfg.Telemetry.MetricsExporter,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter(telemetry.TracerName), log)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	if cfg.Database.AutoMigrate {
		if err := applyMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	graphs := bom.NewGraphLoader(
		persistence.NewGormProductRepository(db.DB),
		persistence.NewGormBOMRepository(db.DB),
		persistence.NewGormStockItemRepository(db.DB),
		persistence.NewGormSupplierRepository(db.DB),
	)
	auditRepo := persistence.NewGormSyncAuditLogRepository(db.DB)
	salesHistory := persistence.NewGormSalesHistoryRepository(db.DB)
	accounts := persistence.NewGormAccountRepository(db.DB)

	// Storefront
	storefrontDefault, storefrontAccounts, err := storefrontConfigs(cfg.Storefront)
	if err != nil {
		log.Fatal("Invalid storefront configuration", zap.Error(err))
	}
	if len(storefrontAccounts) > 0 && cfg.Storefront.BaseURL != "" {
		log.Warn("storefront.base_url ignored because storefront.accounts is set",
			zap.Int("accounts", len(storefrontAccounts)))
	}
	storefrontClient, err := storefront.NewClientForAccounts(storefrontDefault, storefrontAccounts, log)
	if err != nil {
		log.Fatal("Invalid storefront configuration", zap.Error(err))
	}

	// Work queue
	jobQueue, closeQueue, err := queue.New(ctx, queue.Config{
		Backend:   queue.Backend(cfg.Queue.Backend),
		KeyPrefix: cfg.Queue.KeyPrefix,
		LockTTL:   cfg.Queue.LockTTL,
	}, queue.RedisOptions{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize job queue", zap.Error(err))
	}
	defer func() {
		if err := closeQueue(); err != nil {
			log.Error("Error closing job queue", zap.Error(err))
		}
	}()

	// Application services
	reconciler := appsync.NewReconciler(graphs, storefrontClient, auditRepo, log)
	reconciler.SetMetrics(syncMetrics)

	orchestrator := appsync.NewOrchestrator(jobQueue, appsync.OrchestratorConfig{StaleAfter: cfg.Sync.StaleAfter}, log)
	orchestrator.SetMetrics(syncMetrics)

	runner := appsync.NewBulkSyncRunner(graphs, reconciler, cfg.Sync.Concurrency, log)
	runner.SetMetrics(syncMetrics)

	forecastService := appforecast.NewService(graphs, salesHistory, forecast.Params{
		WindowDays:          cfg.Forecast.WindowDays,
		DefaultLeadTimeDays: cfg.Forecast.DefaultLeadTimeDays,
		ReviewDays:          cfg.Forecast.ReviewDays,
		ServiceZ:            cfg.Forecast.ServiceZ,
	}, log)
	forecastService.SetMetrics(syncMetrics)

	// Background workers
	worker, err := scheduler.NewBulkSyncWorker(scheduler.BulkSyncWorkerConfig{
		Workers:           cfg.Sync.Workers,
		PollInterval:      cfg.Sync.PollInterval,
		JobTimeout:        cfg.Sync.JobTimeout,
		HeartbeatInterval: cfg.Sync.HeartbeatInterval,
	}, jobQueue, runner, log)
	if err != nil {
		log.Fatal("Invalid bulk sync worker configuration", zap.Error(err))
	}
	if err := worker.Start(ctx); err != nil {
		log.Fatal("Failed to start bulk sync worker", zap.Error(err))
	}

	trigger := scheduler.NewBulkSyncTrigger(scheduler.BulkSyncTriggerConfig{
		Interval:   cfg.Sync.TriggerInterval,
		RunOnStart: cfg.Sync.TriggerOnStart,
	}, accounts, orchestrator, log)
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start bulk sync trigger", zap.Error(err))
	}

	// HTTP
	middleware.SetupValidator()
	engine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		ReleaseMode:    cfg.App.Env == "production",
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		CORS:           corsConfig(cfg.HTTP.CORSAllowOrigins),
		Metrics:        middleware.HTTPMetricsConfig{MeterProvider: meterProvider, Logger: log},
	})
	accountLimiter := middleware.NewRateLimiter(cfg.HTTP.AccountRateLimit, cfg.HTTP.AccountRateBurst)
	router.NewRouter(engine,
		router.WithMetricsHandler(meterProvider.Handler(), middleware.IPAllowlist(cfg.HTTP.MetricsAllowedIPs)),
		router.WithAPIMiddleware(middleware.AccountRateLimit(accountLimiter)),
	).
		RegisterRoot(handler.NewSystemHandler(cfg.App.Name, version, db)).
		Register(handler.NewInventorySyncHandler(reconciler, orchestrator)).
		Register(handler.NewForecastHandler(forecastService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// the trigger goes first so no new jobs are queued while workers drain
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping bulk sync trigger", zap.Error(err))
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping bulk sync worker", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// applyMigrations runs the embedded migrations on a dedicated connection;
// closing the migrator also closes its *sql.DB.
func applyMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return err
	}

	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		_ = m.Close()
	}()
	return m.Up()
}

func corsConfig(origins []string) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = origins
	return cors
}

// storefrontConfigs splits the storefront section into a shared default and
// per-account entries. The default is only used when no accounts are listed.
func storefrontConfigs(sc config.StorefrontConfig) (*storefront.Config, map[uuid.UUID]*storefront.Config, error) {
	if len(sc.Accounts) == 0 {
		return &storefront.Config{
			BaseURL:    sc.BaseURL,
			AuthMethod: sc.AuthMethod,
			APIKey:     sc.APIKey,
			APISecret:  sc.APISecret,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			RateBurst:  sc.RateBurst,
		}, nil, nil
	}

	accounts := make(map[uuid.UUID]*storefront.Config, len(sc.Accounts))
	for key, ac := range sc.Accounts {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, nil, fmt.Errorf("storefront.accounts.%s: %w", key, err)
		}
		accounts[id] = &storefront.Config{
			BaseURL:    ac.BaseURL,
			AuthMethod: ac.AuthMethod,
			APIKey:     ac.APIKey,
			APISecret:  ac.APISecret,
			Timeout:    ac.Timeout,
			RateLimit:  ac.RateLimit,
			RateBurst:  ac.RateBurst,
		}
	}
	return nil, accounts, nil
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/infrastructure/breaker"
	"github.com/docintake/backend/internal/infrastructure/cache"
	"github.com/docintake/backend/internal/infrastructure/config"
	"github.com/docintake/backend/internal/infrastructure/logger"
	"github.com/docintake/backend/internal/infrastructure/parsing"
	"github.com/docintake/backend/internal/infrastructure/persistence"
	"github.com/docintake/backend/internal/infrastructure/storage"
	"github.com/docintake/backend/internal/infrastructure/telemetry"
	"github.com/docintake/backend/internal/interfaces/http/handler"
	"github.com/docintake/backend/internal/interfaces/http/middleware"
	"github.com/docintake/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting document intake service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	stateChangeRepo := persistence.NewGormStateChangeRepository(db.DB)
	rawDocumentRepo := persistence.NewGormRawDocumentRepository(db.DB)
	checksumIndex := persistence.NewGormChecksumIndex(db.DB)
	exceptionRepo := persistence.NewGormExceptionRepository(db.DB)
	entityDirectory := persistence.NewGormEntityDirectory(db.DB)
	reviewQueue := persistence.NewExceptionReviewQueue(exceptionRepo)

	// Redis claim store breaks ties between concurrent identical uploads
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	claimStore := cache.NewRedisClaimStore(redisClient, cfg.Intake.ClaimTTL)

	// Object storage: quarantine bucket plus the canonical/backup pair
	s3Client, err := storage.NewS3Client(&cfg.Storage)
	if err != nil {
		log.Fatal("Failed to create object storage client", zap.Error(err))
	}
	quarantineStore, err := storage.NewS3BlobStore(s3Client, cfg.Storage.QuarantineBucket, log)
	if err != nil {
		log.Fatal("Failed to create quarantine store", zap.Error(err))
	}
	canonicalStore, err := storage.NewS3BlobStore(s3Client, cfg.Storage.CanonicalBucket, log)
	if err != nil {
		log.Fatal("Failed to create canonical store", zap.Error(err))
	}
	backupStore, err := storage.NewS3BlobStore(s3Client, cfg.Storage.BackupBucket, log)
	if err != nil {
		log.Fatal("Failed to create backup store", zap.Error(err))
	}
	artifactStore := storage.NewDualStore(canonicalStore, backupStore, log)

	// Per-source circuit breaker
	sourceBreaker := breaker.NewSourceBreaker(breaker.Config{
		ConsecutiveThreshold: cfg.Breaker.ConsecutiveThreshold,
		ErrorRateThreshold:   cfg.Breaker.ErrorRateThreshold,
		Window:               cfg.Breaker.Window,
		Cooldown:             cfg.Breaker.Cooldown,
		MinSamples:           cfg.Breaker.MinSamples,
	}, breaker.WithLogger(log))

	// Telemetry
	ctx := context.Background()
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	var pipelineMetrics intakeapp.MetricsRecorder = telemetry.NopMetrics{}
	if meterProvider.IsEnabled() {
		intakeMetrics, err := telemetry.NewIntakeMetrics(meterProvider.Meter("intake.pipeline"), log)
		if err != nil {
			log.Fatal("Failed to create intake metrics", zap.Error(err))
		}
		pipelineMetrics = intakeMetrics
	}

	// Application services
	parser := parsing.NewEnvelopeParser(log)
	reconciliation := intakeapp.NewReconciliationService(rawDocumentRepo, reviewQueue, log)
	orchestrator := intakeapp.NewUploadOrchestrator(intakeapp.OrchestratorDeps{
		Transactions: transactionRepo,
		AuditLog:     stateChangeRepo,
		RawDocs:      rawDocumentRepo,
		Index:        checksumIndex,
		Claims:       claimStore,
		Parser:       parser,
		Directory:    entityDirectory,
		Quarantine:   quarantineStore,
		Artifacts:    artifactStore,
		Breaker:      sourceBreaker,
		Recon:        reconciliation,
		Metrics:      pipelineMetrics,
		Logger:       log,
	}, intakeapp.OrchestratorConfig{
		MinAttributionConfidence:    cfg.Intake.MinAttributionConfidence,
		MinClassificationConfidence: cfg.Intake.MinClassificationConfidence,
		ParseTimeout:                cfg.Intake.ParseTimeout,
		QuarantinePrefix:            cfg.Storage.QuarantinePrefix,
		CanonicalPrefix:             cfg.Storage.CanonicalPrefix,
		BackupPrefix:                cfg.Storage.BackupPrefix,
		MaxWorkers:                  cfg.Intake.MaxWorkers,
	})

	// HTTP handlers
	intakeHandler := handler.NewIntakeHandler(
		orchestrator,
		transactionRepo,
		stateChangeRepo,
		rawDocumentRepo,
		cfg.Intake.MaxUploadSize,
	)
	exceptionHandler := handler.NewExceptionHandler(exceptionRepo)
	sourceHandler := handler.NewSourceHandler(sourceBreaker)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request id, panic recovery, access log, security
	// headers, CORS, body limit, HTTP metrics
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.Enabled,
	}))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, redisClient))

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.IntakeRoutes(intakeHandler)).
		Register(handler.ExceptionRoutes(exceptionHandler)).
		Register(handler.SourceRoutes(sourceHandler)).
		Register(handler.SystemRoutes(systemHandler))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness of the service and its two hard
// dependencies. Object storage is intentionally not probed here; a storage
// outage surfaces as failed transactions, not as an unhealthy process.
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check: database unreachable", zap.Error(err))
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			reqLog.Warn("Health check: redis unreachable", zap.Error(err))
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		healthy := "healthy"
		if status != http.StatusOK {
			healthy = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":   healthy,
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-ledger/internal/audit"
	"asset-ledger/internal/cache"
	"asset-ledger/internal/config"
	"asset-ledger/internal/database"
	"asset-ledger/internal/handlers"
	"asset-ledger/internal/metrics"
	"asset-ledger/internal/middleware"
	"asset-ledger/internal/repository"
	"asset-ledger/internal/routes"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(serve(logger, func() error { return run(cfg, logger) }))
}

// serve devuelve el código de salida; el logger se vacía antes de os.Exit
func serve(logger *zap.Logger, run func() error) int {
	code := 0
	if err := run(); err != nil {
		logger.Error("❌ Server stopped with error", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Server.GinMode == gin.DebugMode {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := database.EnsureSchema(ctx, store); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// Redis es opcional: sin él el caché de reportes queda solo en memoria
	var redisDB *database.RedisDB
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisDB, err = database.NewRedisDB(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("⚠️ Redis no disponible, se usa solo el caché L1", zap.Error(err))
			redisDB = nil
		} else {
			defer redisDB.Close()
			redisClient = redisDB.Client
		}
	}

	// Repositorios
	assetRepo, err := repository.NewAssetRepository(store.DB)
	if err != nil {
		return err
	}
	purchaseRepo, err := repository.NewPurchaseRepository(store.DB)
	if err != nil {
		return err
	}
	transferRepo, err := repository.NewTransferRepository(store.DB)
	if err != nil {
		return err
	}
	assignmentRepo, err := repository.NewAssignmentRepository(store.DB)
	if err != nil {
		return err
	}
	expenditureRepo, err := repository.NewExpenditureRepository(store.DB)
	if err != nil {
		return err
	}
	auditRepo, err := repository.NewAuditRepository(store.DB)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedger(registry)

	sink, err := newAuditSink(ctx, cfg, auditRepo)
	if err != nil {
		return err
	}
	auditService := services.NewAuditService(sink, cfg.Audit.BufferSize, ledgerMetrics, logger)

	reportCache := cache.NewReportCache(redisClient, cfg.Reports.MaxL1Entries, cfg.Reports.CacheTTL, logger)
	defer reportCache.Close()

	// Servicios
	ledgerService := services.NewLedgerService(services.LedgerDeps{
		Assets:       assetRepo,
		Purchases:    purchaseRepo,
		Transfers:    transferRepo,
		Assignments:  assignmentRepo,
		Expenditures: expenditureRepo,
		Ledger:       repository.NewLedgerRepository(store.DB),
		Audit:        auditService,
		Cache:        reportCache,
		Metrics:      ledgerMetrics,
		Logger:       logger,
		MaxRetries:   cfg.Ledger.MaxRetries,
	})
	assetService := services.NewAssetService(assetRepo, auditService, reportCache, ledgerMetrics, logger, cfg.Ledger.MaxRetries)
	movementService := services.NewMovementService(repository.NewReportRepository(store.DB), reportCache, ledgerMetrics, logger)
	monitoringService := services.NewMonitoringService(logger, cfg, redisDB, store, reportCache, auditService)

	// La bitácora solo se puede consultar si se guarda en base de datos
	var history repository.AuditRepository
	if cfg.Audit.Sink != "s3" {
		history = auditRepo
	}

	// Handlers
	assetHandler := handlers.NewAssetHandler(assetService, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, logger)
	reportHandler := handlers.NewReportHandler(movementService, history, cfg.Reports.PushInterval, logger)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, cfg.Reports.PushInterval, logger)
	healthChecker := middleware.NewHealthChecker(store, redisDB, logger)
	issuer := middleware.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(monitoringHandler.RecordRequestMiddleware())

	routes.SetupRoutes(router,
		middleware.AuthMiddleware(issuer, logger),
		assetHandler,
		ledgerHandler,
		reportHandler,
		monitoringHandler,
		healthChecker,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	middleware.ServerInfo(middleware.BannerInfo{
		Port:      cfg.Server.Port,
		Driver:    cfg.Database.Driver,
		Redis:     redisClient != nil,
		AuditSink: sink.Name(),
	}, logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("🛑 Señal recibida, apagando el servidor")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Error cerrando el servidor HTTP", zap.Error(err))
	}

	// Vaciar la auditoría pendiente antes de cerrar la base de datos
	if err := auditService.Close(shutdownCtx); err != nil {
		logger.Error("❌ No se pudo vaciar la auditoría pendiente",
			zap.Error(err),
			zap.Int64("dropped", auditService.Dropped()))
	}

	logger.Info("✅ Servidor detenido")
	return runErr
}

func openStore(cfg *config.Config, logger *zap.Logger) (*database.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return database.NewPostgresDB(
			cfg.Database.URL,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			logger,
		)
	case "sqlite":
		return database.NewSQLiteDB(cfg.Database.URL, logger)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
}

func newAuditSink(ctx context.Context, cfg *config.Config, repo repository.AuditRepository) (audit.Sink, error) {
	switch cfg.Audit.Sink {
	case "database":
		return audit.NewDatabaseSink(repo), nil
	case "s3", "both":
	default:
		return nil, fmt.Errorf("unsupported AUDIT_SINK %q", cfg.Audit.Sink)
	}

	s3Sink, err := audit.NewS3Sink(ctx, audit.S3Config{
		Region:    cfg.Audit.S3Region,
		Bucket:    cfg.Audit.S3Bucket,
		Endpoint:  cfg.Audit.S3Endpoint,
		Prefix:    cfg.Audit.S3Prefix,
		PathStyle: cfg.Audit.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build s3 audit sink: %w", err)
	}

	if cfg.Audit.Sink == "both" {
		return audit.MultiSink{audit.NewDatabaseSink(repo), s3Sink}, nil
	}
	return s3Sink, nil
}

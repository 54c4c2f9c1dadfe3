package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/camdenretail/tillcore-backend/api/routes"
	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/internal/barcodes"
	"github.com/camdenretail/tillcore-backend/internal/catalog"
	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/syncqueue"
	"github.com/camdenretail/tillcore-backend/internal/tax"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/config"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/locks"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
	"github.com/camdenretail/tillcore-backend/pkg/metrics"
	"github.com/camdenretail/tillcore-backend/pkg/migrate"
	"github.com/camdenretail/tillcore-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	rates, err := tax.NewStaticRates(cfg.Tax.DefaultRatePercent)
	if err != nil {
		logg.Error(context.Background(), "failed to load tax rates", err)
		os.Exit(1)
	}
	calculator, err := tax.NewCalculator(rates)
	if err != nil {
		logg.Error(context.Background(), "failed to create tax calculator", err)
		os.Exit(1)
	}

	sessionLocks := locks.NewKeyedMutex()
	txMetrics := metrics.NewTransactionMetrics(prometheus.DefaultRegisterer)
	drainMetrics := metrics.NewDrainMetrics(prometheus.DefaultRegisterer)

	tillRepo := till.NewRepository(dbClient.DB())
	tillService, err := till.NewService(tillRepo, dbClient, auditService, sessionLocks)
	if err != nil {
		logg.Error(context.Background(), "failed to create till service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())

	salesRepo := sales.NewRepository(dbClient.DB())
	salesService, err := sales.NewService(salesRepo, tillRepo, catalogRepo, dbClient, auditService, calculator, sessionLocks, txMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		salesRepo,
		tillRepo,
		dbClient,
		auditService,
		sessionLocks,
		txMetrics,
		cfg.Payments.OverpaymentToleranceCents,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	barcodeService, err := barcodes.NewService(barcodes.NewRepository(dbClient.DB()), dbClient, auditService, cfg.Barcode.TotalDigits)
	if err != nil {
		logg.Error(context.Background(), "failed to create barcode service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	applier, err := syncqueue.NewApplier(tillService, salesService, paymentsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync applier", err)
		os.Exit(1)
	}
	syncService, err := syncqueue.NewService(syncqueue.NewRepository(dbClient.DB()), applier, cfg.Sync, drainMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			tillService,
			salesService,
			paymentsService,
			barcodeService,
			catalogService,
			syncService,
			auditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

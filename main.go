package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcatalog "github.com/freshfields/bulkorder/internal/application/catalog"
	appinv "github.com/freshfields/bulkorder/internal/application/inventory"
	apporder "github.com/freshfields/bulkorder/internal/application/order"
	"github.com/freshfields/bulkorder/internal/config"
	domcatalog "github.com/freshfields/bulkorder/internal/domain/catalog"
	domorder "github.com/freshfields/bulkorder/internal/domain/order"
	"github.com/freshfields/bulkorder/internal/infrastructure/id"
	"github.com/freshfields/bulkorder/internal/infrastructure/memory"
	"github.com/freshfields/bulkorder/internal/infrastructure/notify"
	"github.com/freshfields/bulkorder/internal/infrastructure/observability/oteltrace"
	"github.com/freshfields/bulkorder/internal/infrastructure/observability/prometrics"
	"github.com/freshfields/bulkorder/internal/infrastructure/observability/telemetry"
	"github.com/freshfields/bulkorder/internal/infrastructure/observability/zaplogger"
	"github.com/freshfields/bulkorder/internal/infrastructure/outbox"
	"github.com/freshfields/bulkorder/internal/infrastructure/postgres"
	"github.com/freshfields/bulkorder/internal/observability"
	httppresentation "github.com/freshfields/bulkorder/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := zaplogger.New(
		observability.F("service", cfg.App.Name),
		observability.F("env", cfg.App.Env),
	)
	if syncer, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = syncer.Sync() }()
	}

	registry := prometrics.New(cfg.App.Name, "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MStockReservations: registry.Counter(
			string(observability.MStockReservations),
			"Stock reservation attempts by outcome.",
			"outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route",
		),
	}
	tel := telemetry.New(oteltrace.New(cfg.App.Name), logger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		catalogRepo domcatalog.Repository
		orderRepo   domorder.Repository
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, poolErr := postgres.NewPool(ctx, cfg.DB)
		if poolErr != nil {
			logger.Error("postgres_connect_failed", observability.F("error", poolErr))
			os.Exit(1)
		}
		defer pool.Close()
		if migrateErr := postgres.Migrate(ctx, pool); migrateErr != nil {
			logger.Error("postgres_migrate_failed", observability.F("error", migrateErr))
			os.Exit(1)
		}
		catalogRepo = postgres.NewCatalogRepository(pool)
		orderRepo = postgres.NewOrderRepository(pool)
	default:
		memCatalog := memory.NewCatalogRepository()
		if cfg.Storage.SeedCatalog {
			if seedErr := memory.Seed(ctx, memCatalog); seedErr != nil {
				logger.Error("catalog_seed_failed", observability.F("error", seedErr))
				os.Exit(1)
			}
		}
		catalogRepo = memCatalog
		orderRepo = memory.NewOrderRepository()
	}

	bus := outbox.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	notifyWorker := notify.New(bus, logger)
	notifyWorker.Start()

	idGen := id.NewUUIDGenerator()
	guard := appinv.NewGuard(catalogRepo, cfg.Inventory.ReserveWait, tel)
	orderService := apporder.NewService(orderRepo, catalogRepo, guard, idGen, bus, tel)
	catalogService := appcatalog.NewService(catalogRepo, idGen, tel)

	handler := httppresentation.NewHandler(orderService, catalogService, logger)
	middleware := httppresentation.ObservabilityMiddleware(logger, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", middleware(handler.Router()))

	server := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// terminal runs the register process: the local durable store, the sync
// engine, and the loopback API the register UI talks to. The register
// keeps selling with or without a network link.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogapp "github.com/pos/backend/internal/application/catalog"
	syncapp "github.com/pos/backend/internal/application/sync"
	tillapp "github.com/pos/backend/internal/application/till"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/connectivity"
	"github.com/pos/backend/internal/infrastructure/ledgerclient"
	"github.com/pos/backend/internal/infrastructure/localstore"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.NewFromAppConfig(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting terminal",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.Terminal.Port),
		zap.String("ledger_origin", cfg.Terminal.LedgerOrigin),
		zap.String("data_path", cfg.Terminal.DataPath),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	store, err := localstore.Open(cfg.Terminal.DataPath, log, gormLog)
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}
	defer func() {
		_ = store.Close()
	}()
	if store.Degraded {
		log.Warn("Local store degraded, sales will not survive a restart")
	}

	monitor := connectivity.NewMonitor(log)
	client := ledgerclient.New(cfg.Terminal.LedgerOrigin, cfg.Terminal.RequestTimeout, monitor, log)

	transactions := localstore.NewGormTransactionRepository(store.DB)
	tills := localstore.NewGormTillRepository(store.DB)
	pendingCloses := localstore.NewGormPendingCloseRepository(store.DB)
	mappings := localstore.NewGormOpenMappingRepository(store.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := syncapp.NewEngine(transactions, tills, pendingCloses, mappings, client, log)
	unsubscribe := engine.Start(ctx, monitor)
	defer unsubscribe()

	tillService := tillapp.NewService(
		tills, transactions, pendingCloses, client, monitor, engine,
		decimal.NewFromFloat(cfg.Terminal.VarianceAlertThreshold), log,
	)
	catalogService := catalogapp.NewService(localstore.NewGormCatalogRepository(store.DB), client, log)

	// Best-effort warm-up: proves the link and freshens the cache.
	go func() {
		if _, err := catalogService.Refresh(ctx); err != nil {
			log.Info("Startup catalog refresh failed, will retry when online", zap.Error(err))
		}
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	terminal := handler.NewTerminalHandler(tillService, catalogService, engine, monitor, transactions)

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Terminal.Port,
		Handler:      router.NewTerminalRouter(log, terminal),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Terminal listening", zap.String("addr", srv.Addr))

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}

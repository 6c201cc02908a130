// README: Entry point; loads config, wires stores and managers, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"unihub/internal/config"
	"unihub/internal/httpapi"
	"unihub/internal/infra"
	"unihub/internal/kv"
	"unihub/internal/logging"
	"unihub/internal/modules/customer"
	"unihub/internal/modules/declined"
	"unihub/internal/modules/driver"
	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/modules/stats"
	"unihub/internal/notify"
	"unihub/internal/pricing"
)

func main() {
	log := logging.New()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	orderStore := order.NewStore(dbPool)
	deviceSets := kv.NewRedis(redisClient, cfg.Feed.NotifiedTTL)
	ledger := declined.NewLedger(deviceSets, declined.NewStore(dbPool), log)
	realtime := feed.NewRedisRealtime(redisClient, log)
	notifier := notify.NewPG(dbPool)
	statsStore := stats.NewStore(dbPool)

	estimator, err := pricing.NewEstimator(cfg.Maps.APIKey, log)
	if err != nil {
		log.Fatal("pricing", zap.Error(err))
	}

	customerSvc := customer.NewService(
		orderStore,
		notifier,
		customer.NewPGTransactionStore(dbPool),
		estimator,
		realtime,
		realtime,
		log,
	)
	customers := customer.NewManager(ctx, customerSvc)
	defer customers.CloseAll()

	hub := httpapi.NewFeedHub(log)
	drivers := driver.NewManager(ctx, driver.ManagerDeps{
		Store:        orderStore,
		Ledger:       ledger,
		Recorder:     ledger,
		Stats:        statsStore,
		Publisher:    realtime,
		Realtime:     realtime,
		Notified:     deviceSets,
		PollInterval: cfg.Feed.PollInterval,
		Log:          log,
	}, hub.Offer)
	defer drivers.CloseAll()

	handler := httpapi.NewRouter(httpapi.ServerDeps{
		Customers:   customers,
		CustomerSvc: customerSvc,
		Drivers:     drivers,
		Hub:         hub,
		Log:         log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}

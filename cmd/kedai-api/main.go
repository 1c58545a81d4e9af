// README: Entry point; loads config, runs migrations, wires services, and
// starts the HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kedai/internal/auth"
	"kedai/internal/config"
	httptransport "kedai/internal/http"
	"kedai/internal/infra"
	"kedai/internal/logging"
	"kedai/internal/metrics"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/location"
	"kedai/internal/modules/order"
	"kedai/internal/modules/verification"
	"kedai/internal/storage/disk"
	"kedai/internal/storage/postgres"
	"kedai/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.Migrate(cfg.DBDSN, migrations.FS); err != nil {
		logger.Fatalw("migrations failed", "error", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatalw("postgres init failed", "error", err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	store := postgres.New(dbPool)
	files := disk.New(cfg.Photo.Dir)

	orderSvc := order.NewService(store, files, cfg.Loyalty, cfg.Photo, logger)
	dispatchSvc := dispatch.NewService(store, orderSvc, cfg.Dispatch, logger)
	verificationSvc := verification.NewService(store, orderSvc, cfg.OTP, logger)
	courierSvc := courier.NewService(store)
	locationSvc := location.NewService(location.NewStore(redisClient))

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:      auth.NewVerifier(cfg.JWTSecret),
		Orders:        orderSvc,
		Dispatch:      dispatchSvc,
		Verification:  verificationSvc,
		Couriers:      courierSvc,
		Location:      locationSvc,
		Notifications: store,
		Log:           logger,
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infow("listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("server error", "error", err)
	}
}

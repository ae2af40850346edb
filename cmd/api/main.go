package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"order-engine/internal/config"
	"order-engine/internal/db"
	"order-engine/internal/events"
	"order-engine/internal/httpserver"
	"order-engine/internal/lock"
	"order-engine/internal/logging"
	"order-engine/internal/metrics"
	cartrepo "order-engine/internal/repository/cart"
	orderrepo "order-engine/internal/repository/order"
	outboxrepo "order-engine/internal/repository/outbox"
	productrepo "order-engine/internal/repository/product"
	voucherrepo "order-engine/internal/repository/voucher"
	ordersvc "order-engine/internal/service/order"
	paymentsvc "order-engine/internal/service/payment"
	"order-engine/internal/service/pricing"
	vouchersvc "order-engine/internal/service/voucher"
	"order-engine/internal/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbpool.Close()

	m := metrics.New()
	retry := db.NewRetrier(cfg.StorageRetries)
	tx := db.NewTransactor(dbpool)

	productRepo := productrepo.NewPostgres(dbpool, logger, retry)
	voucherRepo := voucherrepo.NewPostgres(dbpool, logger, retry)
	cartRepo := cartrepo.NewPostgres(dbpool, logger, retry)
	orderRepo := orderrepo.NewPostgres(dbpool, logger, retry)
	outboxRepo := outboxrepo.NewPostgres(dbpool)

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		locker = lock.NewRedis(rdb, "order-engine:cart:", cfg.CartLeaseTTL)
		logger.Info("cart leases enabled", zap.String("redis", cfg.RedisAddr))
	}

	orderService := ordersvc.New(ordersvc.Deps{
		Carts:    cartRepo,
		Products: productRepo,
		Orders:   orderRepo,
		Outbox:   outboxRepo,
		Vouchers: vouchersvc.New(voucherRepo),
		Calculator: pricing.New(pricing.Policy{
			VATRate:               cfg.VATRate,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			FlatShippingFee:       cfg.FlatShippingFee,
		}),
		Tx:      tx,
		Locker:  locker,
		Logger:  logger,
		Metrics: m,
	})
	paymentService := paymentsvc.New(orderRepo, outboxRepo, tx, logger, m)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		OrderSvc:   orderService,
		PaymentSvc: paymentService,
		Metrics:    m,
		Redirects: httpserver.PaymentRedirects{
			Success: cfg.PaymentSuccessURL,
			Cancel:  cfg.PaymentCancelURL,
			Failure: cfg.PaymentFailureURL,
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		relay := worker.NewRelay(outboxRepo, publisher, cfg.RelayInterval, cfg.RelayBatchSize, logger, m)
		g.Go(func() error { return relay.Run(gctx) })
	} else {
		logger.Warn("KAFKA_BROKERS not set, outbox events stay unpublished")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"order-engine/internal/config"
	"order-engine/internal/db"
	"order-engine/internal/logging"
	cartrepo "order-engine/internal/repository/cart"
	productrepo "order-engine/internal/repository/product"
	voucherrepo "order-engine/internal/repository/voucher"
	"order-engine/internal/seed"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	userID := flag.String("user", "demo-user", "owner of the seeded cart")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	retry := db.NewRetrier(cfg.StorageRetries)
	res, err := seed.Apply(ctx,
		productrepo.NewPostgres(pool, logger, retry),
		voucherrepo.NewPostgres(pool, logger, retry),
		cartrepo.NewPostgres(pool, logger, retry),
		*userID, time.Now().UTC(), logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied", zap.String("cart_id", res.CartID), zap.Int("products", len(res.ProductIDs)))
}

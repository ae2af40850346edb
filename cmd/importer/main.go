package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"order-engine/internal/config"
	"order-engine/internal/db"
	"order-engine/internal/importer"
	"order-engine/internal/logging"
	productrepo "order-engine/internal/repository/product"
	voucherrepo "order-engine/internal/repository/voucher"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	filePath := flag.String("file", "", "path to a product or voucher CSV file")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger = logger.Named("importer")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	retry := db.NewRetrier(cfg.StorageRetries)
	imp := importer.NewCSVImporter(f,
		productrepo.NewPostgres(pool, logger, retry),
		voucherrepo.NewPostgres(pool, logger, retry))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	logger.Info("import finished",
		zap.String("file", *filePath),
		zap.Int("imported", count),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
}

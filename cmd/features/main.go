package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/personashop/internal/config"
	"github.com/timmy/personashop/internal/llm"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/repository"
	"github.com/timmy/personashop/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "personashop-features",
	})
	logger.SetDefaultLogger(appLogger)

	category := flag.String("category", "", "Only backfill this product category")
	limit := flag.Int("limit", 0, "Maximum number of products to visit (0 = all)")
	workers := flag.Int("workers", 0, "Concurrent completion calls (0 = config value)")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *workers <= 0 {
		*workers = cfg.Features.Workers
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	productRepo := repository.NewProductRepository(db)

	provider, err := llm.NewProvider(&cfg.Completion)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize completion provider")
	}
	completer := service.NewCompletionClient(provider, cfg.Completion.Temperature, appLogger)
	backfill := service.NewFeatureBackfill(
		productRepo,
		service.NewProductService(productRepo, completer),
		appLogger,
		service.BackfillConfig{Workers: *workers},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := backfill.Run(ctx, service.BackfillOptions{Category: *category, Limit: *limit})
	if err != nil {
		appLogger.WithError(err).Error("Backfill stopped early")
	}
	appLogger.WithFields(logger.Fields{
		"processed": stats.Processed,
		"computed":  stats.Computed,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Backfill summary")

	if err != nil || stats.Failed > 0 {
		cancel()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"diary-service/internal/artifact"
	"diary-service/internal/config"
	"diary-service/internal/handler"
	"diary-service/internal/loader"
	"diary-service/internal/pipeline"
	"diary-service/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	store, err := artifact.NewStore(cfg.Scratch.Dir,
		time.Duration(cfg.Scratch.TTLSeconds)*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to initialize artifact store", zap.Error(err))
	}

	ldr := loader.New(logger)
	cleaner := pipeline.NewCleaner(pipeline.Config{
		RequiredColumns:  cfg.Pipeline.RequiredColumns,
		MinCategoryCount: cfg.Pipeline.MinCategoryCount,
	}, logger)

	publisher := artifact.NewPublisher(cfg.Output.Transport, "/api/v1/artifacts", store)

	h := handler.NewHandler(ldr, cleaner, store, publisher, logger)
	srv := server.NewServer(h, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv.Run(ctx, cfg.Server.Port)
	logger.Info("Application stopped.")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/btube/btube-backend-go/internal/chain"
	"github.com/btube/btube-backend-go/internal/config"
	"github.com/btube/btube-backend-go/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Chain.SubmitterURL == "" {
		logger.Log.Fatal("Submitter URL is required (chain.submitterurl)")
	}

	relay, err := chain.NewRelay(&cfg.Chain)
	if err != nil {
		logger.Log.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer relay.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Fatal("Relay stopped", zap.Error(err))
	}

	logger.Log.Info("Relay stopped gracefully")
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dl-issuer/dl_issuer/internal/config"
	"github.com/dl-issuer/dl_issuer/internal/infra"
	"github.com/dl-issuer/dl_issuer/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if err := infra.Migrate(context.Background(), cfg.DatabaseURL, logger); err != nil {
		logger.Error("migrate database", "error", err)
		os.Exit(1)
	}
}

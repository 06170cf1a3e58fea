package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bankctl-dev/bankctl/internal/config"
	"github.com/bankctl-dev/bankctl/internal/logger"
	"github.com/bankctl-dev/bankctl/internal/sandbox"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := sandbox.New(cfg.Sandbox, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sandbox")
	}

	log.Info().
		Str("version", version).
		Str("addr", cfg.Sandbox.Addr).
		Msg("Starting sandbox API with demo accounts alice, bob (2FA) and admin")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Sandbox failed")
	}
}

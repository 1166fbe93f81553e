// Command server runs the token signing HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/bunnysign/internal/api"
	"github.com/dharsanguruparan/bunnysign/internal/config"
	"github.com/dharsanguruparan/bunnysign/internal/logging"
	"github.com/dharsanguruparan/bunnysign/internal/signing"
)

func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	signer := signing.NewSigner(cfg.SigningKey, cfg.BaseURL)
	srv := api.New(cfg, signer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

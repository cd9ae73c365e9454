package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/invkeeper/internal/client/cli"
	"github.com/dmitrijs2005/invkeeper/internal/client/config"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn(ctx, "closing session store failed", "error", err)
		}
	}()

	app.Run(ctx)
}

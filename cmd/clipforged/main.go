package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/library"
	"clipforge/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := library.Open(cfg, logger)
	if err != nil {
		logger.Error("open library store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, store, nil, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("clipforged shutting down")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JaimeStill/docgate/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("env file load failed: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	svc, err := NewService(cfg)
	if err != nil {
		log.Fatal("service init failed: ", err)
	}

	if err := svc.Start(); err != nil {
		log.Fatal("service start failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := svc.Run(ctx)
	if runErr != nil {
		svc.infra.Logger.Error("gateway stopped", "error", runErr)
	}

	if err := svc.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		svc.infra.Logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	svc.infra.Logger.Info("docgate stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

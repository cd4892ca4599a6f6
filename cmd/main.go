package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/saltcrest/swellcast/internal/app"
	"github.com/saltcrest/swellcast/internal/config"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "swellcast",
	})
	if level, err := log.ParseLevel(cfg.System.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	core, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble core", "err", err)
	}
	if err := core.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start core", "err", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGUSR1)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGTSTP:
			logger.Info("suspending, flushing media cache")
			core.Suspend()
		case syscall.SIGCONT:
			logger.Info("resuming, reconciling media cache")
			core.Resume()
		case syscall.SIGUSR1:
			logger.Info("memory pressure signal")
			core.MemoryPressure()
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("shutting down")
			core.Shutdown()
			return
		}
	}
}

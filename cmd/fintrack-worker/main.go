package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

// fintrack-worker mirrors saved profiles into the spreadsheet whenever the
// server announces a save.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to consume profile sync messages")
		os.Exit(1)
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process; mirrored profiles will be empty")
	}
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	ctx, stop := cli.GracefulShutdown()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg, backend.Options{Publisher: true, Mirror: true})
	defer cli.Cleanup(logger, res)
	if res.Publisher == nil {
		logger.Error("AMQP broker unavailable")
		os.Exit(1)
	}

	repo := storage.NewRepository(res.Store, logger)
	syncWorker := worker.NewSyncWorker(repo, res.Mirror, logger)

	logger.Info("Consuming profile sync messages", "queue", cfg.AMQPSyncQueue)
	if err := res.Publisher.ConsumeProfileSync(ctx, syncWorker.HandleProfileSync); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

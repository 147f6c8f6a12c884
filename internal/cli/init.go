// Package cli provides common CLI initialization utilities.
// This package consolidates the startup steps shared by cmd/fintrack,
// cmd/fintrack-worker and cmd/reminder-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.ConfigFromEnv(component))
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		Fatal(logger, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		Fatal(logger, "Configuration validation failed", err)
	}
	return cfg
}

// InitBackend creates the store and the requested adapters. Returns the
// result or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, opts backend.Options) *backend.Result {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg, opts)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// Cleanup releases the backend, logging any failure.
func Cleanup(logger *log.Logger, res *backend.Result) {
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", log.FieldError, err)
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

// reminder-worker delivers the reminders the server found due.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReminder)
	logger.Info("Starting reminder-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to consume reminders")
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown()
	defer stop()

	client, err := amqp.NewClient(amqp.Config{
		URL:           cfg.AMQPURL,
		Exchange:      cfg.AMQPExchange,
		SyncQueue:     cfg.AMQPSyncQueue,
		ReminderQueue: cfg.AMQPReminderQueue,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	reminders := worker.NewReminderWorker(worker.NewLogNotifier(logger))

	logger.Info("Consuming due reminders", "queue", cfg.AMQPReminderQueue)
	if err := client.ConsumeReminders(ctx, reminders.HandleReminder); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Reminder-worker shutdown complete")
}

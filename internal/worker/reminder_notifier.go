package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

// Notifier delivers a due reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, msg *amqp.ReminderDueMessage) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentReminder)}
}

func (n *LogNotifier) Notify(ctx context.Context, msg *amqp.ReminderDueMessage) error {
	n.logger.InfoContext(ctx, "Payment reminder",
		log.FieldProfile, msg.Profile,
		log.FieldRecordID, msg.ExpenseID,
		log.FieldTitle, msg.Title,
		log.FieldAmount, msg.Amount,
		"due", msg.Date,
		"person", msg.Person)
	return nil
}

// ReminderWorker consumes reminder.due messages.
type ReminderWorker struct {
	notifier Notifier
}

func NewReminderWorker(notifier Notifier) *ReminderWorker {
	return &ReminderWorker{notifier: notifier}
}

func (w *ReminderWorker) HandleReminder(ctx context.Context, msg *amqp.ReminderDueMessage) error {
	if msg == nil || msg.ExpenseID == "" {
		return fmt.Errorf("reminder message without expense id")
	}
	if err := w.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ReminderProcessor publishes expense reminders whose date has come and
// marks them notified so each fires once.
type ReminderProcessor struct {
	finance   *FinanceService
	profiles  *ProfileService
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewReminderProcessor wires the processor. Without a publisher reminders are
// only logged.
func NewReminderProcessor(finance *FinanceService, profiles *ProfileService, publisher EventPublisher, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderProcessor{
		finance:   finance,
		profiles:  profiles,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentReminder),
		now:       time.Now,
	}
}

// ProcessDue handles every profile once and returns how many reminders were
// delivered. A failing profile does not stop the others.
func (p *ReminderProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.finance == nil || p.profiles == nil {
		return 0, fmt.Errorf("reminder processor not properly initialized")
	}
	st, err := p.profiles.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	today := p.now()
	delivered := 0
	for _, profile := range st.Profiles {
		n, err := p.processProfile(ctx, profile, today)
		delivered += n
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to process reminders",
				log.FieldProfile, profile, log.FieldError, err)
		}
	}

	p.logger.InfoContext(ctx, "Reminder processing complete",
		log.FieldCount, delivered,
		"profiles", len(st.Profiles),
		"date", today.Format("2006-01-02"))
	return delivered, nil
}

func (p *ReminderProcessor) processProfile(ctx context.Context, profile string, today time.Time) (int, error) {
	snap, err := p.finance.Snapshot(ctx, profile)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, r := range snap.DueReminders(today) {
		if err := p.deliver(ctx, profile, r); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish reminder",
				log.FieldProfile, profile, log.FieldRecordID, r.ExpenseID, log.FieldError, err)
			continue
		}
		if _, err := p.finance.MarkReminderNotified(ctx, profile, r.ExpenseID); err != nil {
			if errors.Is(err, core.ErrRecordNotFound) {
				p.logger.DebugContext(ctx, "Reminder expense removed before marking",
					log.FieldProfile, profile, log.FieldRecordID, r.ExpenseID)
				continue
			}
			return delivered, fmt.Errorf("mark reminder %s: %w", r.ExpenseID, err)
		}
		delivered++
	}
	return delivered, nil
}

func (p *ReminderProcessor) deliver(ctx context.Context, profile string, r core.Reminder) error {
	if p.publisher == nil {
		p.logger.InfoContext(ctx, "Reminder due",
			log.NewFields().
				WithProfile(profile, 0).
				WithRecord(r.ExpenseID, r.Title, r.Amount, "").
				ToSlice()...)
		return nil
	}
	return p.publisher.PublishReminderDue(ctx, amqp.NewReminderDueMessage(profile, r))
}

// Run processes reminders immediately and then every interval until ctx is
// done.
func (p *ReminderProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessDue(ctx); err != nil {
			p.logger.ErrorContext(ctx, "Reminder run failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

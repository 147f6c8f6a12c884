package services

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type fakePublisher struct {
	mu        sync.Mutex
	syncs     []uint64
	reminders []*amqp.ReminderDueMessage
	err       error
	// onReminder runs after a reminder is recorded, outside the lock.
	onReminder func(*amqp.ReminderDueMessage)
}

func (f *fakePublisher) PublishProfileSync(_ context.Context, _ string, version uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, version)
	return f.err
}

func (f *fakePublisher) PublishReminderDue(_ context.Context, msg *amqp.ReminderDueMessage) error {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}
	f.reminders = append(f.reminders, msg)
	hook := f.onReminder
	f.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

type fakeOCR struct {
	text  string
	err   error
	calls chan struct{}
	gate  chan struct{}
}

func (f *fakeOCR) ParseImage(ctx context.Context, _ []byte, _ string) (string, error) {
	if f.calls != nil {
		f.calls <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func newTestServices(pub EventPublisher) (*FinanceService, *ProfileService, *storage.Repository) {
	repo := storage.NewRepository(storage.NewMemoryStore(), nil)
	overviews := cache.NewLRUCache[core.MonthOverview](16, time.Hour)
	finance := NewFinanceService(repo, pub, overviews, nil)
	profiles := NewProfileService(repo, nil)
	return finance, profiles, repo
}

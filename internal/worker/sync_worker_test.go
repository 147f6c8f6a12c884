package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

func TestSyncWorkerMirrorsStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewRepository(storage.NewMemoryStore(), nil)
	snap := core.DefaultSnapshot("2024-06")
	snap.Expenses = []core.Expense{{ID: "e1", Title: "Rent", Amount: 900, FreqMonths: 1, Person: "Me"}}
	if err := repo.Save(ctx, "Home", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mirror := memory.New()
	w := NewSyncWorker(repo, mirror, nil)
	if err := w.HandleProfileSync(ctx, &amqp.ProfileSyncMessage{Profile: "Home", Version: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("HandleProfileSync: %v", err)
	}

	rows, ok := mirror.Rows("Home")
	if !ok || len(rows) != 2 {
		t.Fatalf("mirrored rows = %v", rows)
	}
}

func TestSyncWorkerSkipsStaleMessages(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewRepository(storage.NewMemoryStore(), nil)
	mirror := memory.New()
	w := NewSyncWorker(repo, mirror, nil)

	now := time.Now()
	if err := w.HandleProfileSync(ctx, &amqp.ProfileSyncMessage{Profile: "Default", Version: 5, Timestamp: now}); err != nil {
		t.Fatalf("HandleProfileSync: %v", err)
	}
	if err := w.HandleProfileSync(ctx, &amqp.ProfileSyncMessage{Profile: "Default", Version: 4, Timestamp: now.Add(-time.Second)}); err != nil {
		t.Fatalf("HandleProfileSync: %v", err)
	}
	if mirror.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", mirror.Writes())
	}

	// A restarted server counts from 1 again but its messages are newer.
	if err := w.HandleProfileSync(ctx, &amqp.ProfileSyncMessage{Profile: "Default", Version: 1, Timestamp: now.Add(time.Minute)}); err != nil {
		t.Fatalf("HandleProfileSync: %v", err)
	}
	if mirror.Writes() != 2 {
		t.Fatalf("writes = %d, want 2", mirror.Writes())
	}
}

type failingMirror struct{}

func (failingMirror) MirrorProfile(context.Context, string, core.Snapshot) error {
	return errors.New("quota")
}

func TestSyncWorkerReturnsMirrorErrors(t *testing.T) {
	repo := storage.NewRepository(storage.NewMemoryStore(), nil)
	w := NewSyncWorker(repo, failingMirror{}, nil)

	err := w.HandleProfileSync(context.Background(), &amqp.ProfileSyncMessage{Profile: "Default", Version: 1})
	if err == nil {
		t.Fatal("expected mirror error so the message is requeued")
	}
	if err := w.HandleProfileSync(context.Background(), &amqp.ProfileSyncMessage{}); err == nil {
		t.Fatal("expected error for message without profile")
	}
}

type recordingNotifier struct {
	got []*amqp.ReminderDueMessage
}

func (r *recordingNotifier) Notify(_ context.Context, msg *amqp.ReminderDueMessage) error {
	r.got = append(r.got, msg)
	return nil
}

func TestReminderWorker(t *testing.T) {
	n := &recordingNotifier{}
	w := NewReminderWorker(n)

	if err := w.HandleReminder(context.Background(), &amqp.ReminderDueMessage{ExpenseID: "e1", Title: "Tax"}); err != nil {
		t.Fatalf("HandleReminder: %v", err)
	}
	if len(n.got) != 1 {
		t.Fatalf("notified %d times, want 1", len(n.got))
	}
	if err := w.HandleReminder(context.Background(), &amqp.ReminderDueMessage{}); err == nil {
		t.Fatal("expected error for reminder without id")
	}
}

func TestLogNotifier(t *testing.T) {
	if err := NewLogNotifier(nil).Notify(context.Background(), &amqp.ReminderDueMessage{ExpenseID: "e1"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

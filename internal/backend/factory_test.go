package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "x.db",
		AMQPURL:           "amqp://localhost/",
		AMQPExchange:      "fintrack",
		AMQPSyncQueue:     "sync",
		AMQPReminderQueue: "reminders",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteStore || cfg.AMQP.SyncQueue != "sync" || cfg.AMQP.ReminderQueue != "reminders" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryStore}, false},
		{"file without path", Config{Type: FileStore}, true},
		{"sqlite without path", Config{Type: SQLiteStore}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFactoryCreateStores(t *testing.T) {
	dir := t.TempDir()
	cases := []Config{
		{Type: MemoryStore},
		{Type: FileStore, DataFilePath: filepath.Join(dir, "data.json")},
		{Type: SQLiteStore, SQLiteDBPath: filepath.Join(dir, "data.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(nil).Create(ctx, cfg, Options{})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			defer res.Cleanup()

			if err := res.Store.Set(ctx, "k", "v"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := res.Store.Get(ctx, "k")
			if err != nil || !ok || v != "v" {
				t.Fatalf("Get = %q, %v, %v", v, ok, err)
			}
			if res.Publisher != nil || res.EventPublisher() != nil {
				t.Fatal("publisher should be nil when not requested")
			}
		})
	}
}

func TestFactoryMirrorDefaultsToMemory(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: MemoryStore}, Options{Mirror: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer res.Cleanup()
	if _, ok := res.Mirror.(*memory.Store); !ok {
		t.Fatalf("mirror = %T, want *memory.Store", res.Mirror)
	}
}

func TestResultCleanupOrderAndError(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	r := &Result{cleanups: []CleanupFunc{
		func() error { order = append(order, 1); return boom },
		func() error { order = append(order, 2); return nil },
	}}
	if err := r.Cleanup(); !errors.Is(err, boom) {
		t.Fatalf("Cleanup() = %v, want boom", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("cleanup order = %v, want [2 1]", order)
	}
}

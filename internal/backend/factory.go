package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

// Factory builds adapters from a Config.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Options picks the optional adapters a process needs.
type Options struct {
	Publisher bool
	Mirror    bool
}

// Create builds the key store and, when requested and configured, the AMQP
// client and the spreadsheet mirror. A broker that cannot be reached is
// logged and skipped; the store is required.
func (f *Factory) Create(ctx context.Context, cfg Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	store, err := f.createStore(cfg)
	if err != nil {
		return nil, err
	}
	res.Store = store
	res.cleanups = append(res.cleanups, store.Close)

	if opts.Publisher && cfg.AMQP.URL != "" {
		client, err := amqp.NewClient(cfg.AMQP, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.Publisher = client
			res.cleanups = append(res.cleanups, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQP.Exchange,
				"sync_queue", cfg.AMQP.SyncQueue,
				"reminder_queue", cfg.AMQP.ReminderQueue)
		}
	}

	if opts.Mirror {
		mirror, err := f.createMirror(ctx, cfg)
		if err != nil {
			res.Cleanup()
			return nil, err
		}
		res.Mirror = mirror
	}
	return res, nil
}

func (f *Factory) createStore(cfg Config) (storage.KeyStore, error) {
	switch cfg.Type {
	case SQLiteStore:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
		return store, nil
	case FileStore:
		store, err := storage.NewFileStore(cfg.DataFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file store", "path", cfg.DataFilePath)
		return store, nil
	case MemoryStore:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// createMirror falls back to the in-memory mirror when no spreadsheet is
// configured.
func (f *Factory) createMirror(ctx context.Context, cfg Config) (sheets.SnapshotMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "No spreadsheet configured, mirroring in memory")
		return memory.New(), nil
	}
	client, err := gsheet.NewClient(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		SheetPrefix:     cfg.GoogleSheetPrefix,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror")
	return client, nil
}

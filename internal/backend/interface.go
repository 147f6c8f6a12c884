// Package backend assembles the storage, messaging and mirror adapters chosen
// by configuration.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the adapters built for one process. Publisher and Mirror are
// nil when not configured.
type Result struct {
	Store     storage.KeyStore
	Publisher *amqp.Client
	Mirror    sheets.SnapshotMirror
	cleanups  []CleanupFunc
}

// EventPublisher returns the publisher as a services port, or nil.
func (r *Result) EventPublisher() services.EventPublisher {
	if r.Publisher == nil {
		return nil
	}
	return r.Publisher
}

// Cleanup releases everything in reverse creation order and returns the
// first error.
func (r *Result) Cleanup() error {
	var first error
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](); err != nil && first == nil {
			first = err
		}
	}
	r.cleanups = nil
	return first
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds configuration for backend creation
type Config struct {
	Type StoreType

	DataFilePath string
	SQLiteDBPath string

	AMQP amqp.Config

	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSheetPrefix        string
}

// StoreType selects the key store implementation.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	FileStore   StoreType = "file"
	SQLiteStore StoreType = "sqlite"
)

// String implements fmt.Stringer
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the store type is valid
func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, FileStore, SQLiteStore:
		return true
	default:
		return false
	}
}

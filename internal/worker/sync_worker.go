// Package worker holds the AMQP message handlers run by the background
// workers.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// SnapshotLoader reads the stored snapshot of a profile.
type SnapshotLoader interface {
	Load(ctx context.Context, profile string) (core.Snapshot, error)
}

type mirrored struct {
	version uint64
	at      time.Time
}

// SyncWorker mirrors saved profiles to the spreadsheet. It always mirrors the
// snapshot currently stored, so replays are harmless; notifications older
// than the last mirrored one are skipped.
type SyncWorker struct {
	snapshots SnapshotLoader
	mirror    sheets.SnapshotMirror
	logger    *log.Logger

	mu   sync.Mutex
	last map[string]mirrored
}

func NewSyncWorker(snapshots SnapshotLoader, mirror sheets.SnapshotMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		snapshots: snapshots,
		mirror:    mirror,
		logger:    logger.WithComponent(log.ComponentWorker),
		last:      make(map[string]mirrored),
	}
}

// HandleProfileSync processes one profile.sync message.
func (w *SyncWorker) HandleProfileSync(ctx context.Context, msg *amqp.ProfileSyncMessage) error {
	if msg == nil || msg.Profile == "" {
		return fmt.Errorf("sync message without profile")
	}
	if w.isStale(msg) {
		w.logger.DebugContext(ctx, "Skipping stale sync message",
			log.FieldProfile, msg.Profile, log.FieldVersion, msg.Version)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldProfile, msg.Profile, log.FieldVersion, msg.Version)

	snap, err := w.snapshots.Load(ctx, msg.Profile)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := w.mirror.MirrorProfile(ctx, msg.Profile, snap); err != nil {
		return fmt.Errorf("mirror profile: %w", err)
	}

	w.mu.Lock()
	w.last[msg.Profile] = mirrored{version: msg.Version, at: msg.Timestamp}
	w.mu.Unlock()
	return nil
}

// isStale reports whether a newer notification of the same profile was
// already mirrored. Versions restart with the server, so both the version and
// the timestamp have to be older.
func (w *SyncWorker) isStale(msg *amqp.ProfileSyncMessage) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.last[msg.Profile]
	if !ok {
		return false
	}
	return msg.Version <= last.version && msg.Timestamp.Before(last.at)
}

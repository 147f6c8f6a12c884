package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	keyPrefix         = "expense_tracker_"
	KeyProfiles       = keyPrefix + "profiles"
	KeyCurrentProfile = keyPrefix + "current_profile"
)

// ReservedProfileNames would collide with the bookkeeping keys.
var ReservedProfileNames = []string{"profiles", "current_profile"}

// SnapshotKey is the key holding the snapshot of profile.
func SnapshotKey(profile string) string {
	return keyPrefix + profile
}

// Repository reads and writes profile snapshots through a KeyStore.
type Repository struct {
	store  KeyStore
	logger *log.Logger
	now    func() time.Time
}

// NewRepository wraps store. A nil logger discards log output.
func NewRepository(store KeyStore, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Discard()
	}
	return &Repository{
		store:  store,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}
}

// Load returns the snapshot of profile with field defaults applied. A missing
// or unreadable document yields the default snapshot for the current month.
func (r *Repository) Load(ctx context.Context, profile string) (core.Snapshot, error) {
	currentMonth := core.MonthOf(r.now())

	raw, found, err := r.store.Get(ctx, SnapshotKey(profile))
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load profile %s: %w", profile, err)
	}
	if !found {
		return core.DefaultSnapshot(currentMonth), nil
	}

	var s core.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		r.logger.WarnContext(ctx, "Stored snapshot is malformed, using defaults",
			log.FieldProfile, profile,
			log.FieldError, err)
		return core.DefaultSnapshot(currentMonth), nil
	}
	s.ApplyDefaults(currentMonth)
	return s, nil
}

// Save writes the whole snapshot of profile.
func (r *Repository) Save(ctx context.Context, profile string, s core.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile, err)
	}
	if err := r.store.Set(ctx, SnapshotKey(profile), string(data)); err != nil {
		return fmt.Errorf("save profile %s: %w", profile, err)
	}
	r.logger.DebugContext(ctx, "Snapshot saved", log.FieldProfile, profile, "bytes", len(data))
	return nil
}

// Delete removes the snapshot of profile.
func (r *Repository) Delete(ctx context.Context, profile string) error {
	if err := r.store.Delete(ctx, SnapshotKey(profile)); err != nil {
		return fmt.Errorf("delete profile %s: %w", profile, err)
	}
	return nil
}

// Profiles returns the stored profile list. A missing or malformed list is
// returned as nil.
func (r *Repository) Profiles(ctx context.Context) ([]string, error) {
	raw, found, err := r.store.Get(ctx, KeyProfiles)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if !found {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		r.logger.WarnContext(ctx, "Stored profile list is malformed, ignoring", log.FieldError, err)
		return nil, nil
	}
	return names, nil
}

func (r *Repository) SetProfiles(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := r.store.Set(ctx, KeyProfiles, string(data)); err != nil {
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// CurrentProfile returns the selected profile, or "" when none is stored.
func (r *Repository) CurrentProfile(ctx context.Context) (string, error) {
	raw, _, err := r.store.Get(ctx, KeyCurrentProfile)
	if err != nil {
		return "", fmt.Errorf("load current profile: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func (r *Repository) SetCurrentProfile(ctx context.Context, name string) error {
	if err := r.store.Set(ctx, KeyCurrentProfile, name); err != nil {
		return fmt.Errorf("save current profile: %w", err)
	}
	return nil
}

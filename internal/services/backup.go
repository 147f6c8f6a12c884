package services

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Export renders the snapshot of profile as a backup document.
func (s *FinanceService) Export(ctx context.Context, profile string) ([]byte, error) {
	snap, err := s.repo.Load(ctx, profile)
	if err != nil {
		return nil, err
	}
	return core.MarshalBackup(snap)
}

// Restore replaces the snapshot of profile with a backup document. Documents
// lacking categories, familyMembers or month are rejected and nothing changes.
func (s *FinanceService) Restore(ctx context.Context, profile string, data []byte) (core.Snapshot, error) {
	restored, err := core.UnmarshalBackup(data)
	if err != nil {
		return core.Snapshot{}, err
	}
	restored.ApplyDefaults(s.CurrentMonth())
	return s.Mutate(ctx, profile, log.OpRestore, func(snap *core.Snapshot) error {
		*snap = restored
		return nil
	})
}

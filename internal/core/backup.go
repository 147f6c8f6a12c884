package core

import (
	"encoding/json"
	"fmt"
)

// requiredBackupFields must be present for a restore to be accepted.
var requiredBackupFields = []string{"categories", "familyMembers", "month"}

// MarshalBackup renders a snapshot in the backup file format.
func MarshalBackup(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return data, nil
}

// UnmarshalBackup parses a backup file. Only the presence of categories,
// familyMembers and month is checked before the snapshot is accepted.
func UnmarshalBackup(data []byte) (Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	for _, name := range requiredBackupFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return Snapshot{}, ErrInvalidBackup
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return s, nil
}

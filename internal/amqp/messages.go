package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// Routing keys on the exchange.
const (
	RoutingProfileSync = "profile.sync"
	RoutingReminderDue = "reminder.due"
)

// ProfileSyncMessage announces that a profile snapshot was saved. The worker
// loads the snapshot itself; Version lets it skip stale notifications.
type ProfileSyncMessage struct {
	Profile   string    `json:"profile"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProfileSyncMessage(profile string, version uint64) *ProfileSyncMessage {
	return &ProfileSyncMessage{
		Profile:   profile,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ProfileSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ProfileSyncMessageFromJSON(data []byte) (*ProfileSyncMessage, error) {
	var msg ProfileSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderDueMessage carries one expense reminder that reached its date.
type ReminderDueMessage struct {
	Profile   string    `json:"profile"`
	ExpenseID string    `json:"expenseId"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Date      string    `json:"date"`
	Person    string    `json:"person"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderDueMessage(profile string, r core.Reminder) *ReminderDueMessage {
	return &ReminderDueMessage{
		Profile:   profile,
		ExpenseID: r.ExpenseID,
		Title:     r.Title,
		Amount:    r.Amount,
		Date:      r.Date,
		Person:    r.Person,
		Timestamp: time.Now(),
	}
}

func (m *ReminderDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderDueMessageFromJSON(data []byte) (*ReminderDueMessage, error) {
	var msg ReminderDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

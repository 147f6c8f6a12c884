// Package services holds the application use cases: profile management,
// finance mutations, receipt scanning and reminder delivery.
package services

import (
	"context"
	"errors"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

var (
	ErrUnknownProfile = errors.New("profile does not exist")
	ErrLastProfile    = errors.New("the last profile cannot be deleted")
	ErrReservedName   = errors.New("profile name is reserved")
	ErrInvalidProfile = errors.New("invalid profile name")
	ErrStaleScan      = errors.New("a newer scan superseded this one")
	ErrOCRFailed      = errors.New("receipt recognition failed")
)

// SnapshotRepository is the persistence the services need.
type SnapshotRepository interface {
	Load(ctx context.Context, profile string) (core.Snapshot, error)
	Save(ctx context.Context, profile string, s core.Snapshot) error
	Delete(ctx context.Context, profile string) error
	Profiles(ctx context.Context) ([]string, error)
	SetProfiles(ctx context.Context, names []string) error
	CurrentProfile(ctx context.Context) (string, error)
	SetCurrentProfile(ctx context.Context, name string) error
}

// EventPublisher announces saved snapshots and due reminders.
type EventPublisher interface {
	PublishProfileSync(ctx context.Context, profile string, version uint64) error
	PublishReminderDue(ctx context.Context, msg *amqp.ReminderDueMessage) error
}

// TextRecognizer extracts text from an image.
type TextRecognizer interface {
	ParseImage(ctx context.Context, image []byte, contentType string) (string, error)
}

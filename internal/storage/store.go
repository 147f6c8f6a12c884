// Package storage persists profile snapshots in a key/value store.
//
// The layout mirrors browser local storage: one JSON document per profile
// plus two bookkeeping keys for the profile list and the selected profile.
package storage

import (
	"context"
	"errors"
)

var ErrStoreClosed = errors.New("store closed")

// KeyStore is a flat string key/value store.
type KeyStore interface {
	// Get returns the value stored at key. found is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Package store persists settings, history and cached page content as JSON
// values under string keys.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrQuotaExceeded is returned by a Set that would exceed the store's quota.
var ErrQuotaExceeded = eris.New("store: quota exceeded")

// Store is a key-value store of JSON-serializable values.
// Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value under key into dst. It reports false when the
// key is missing.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, eris.Wrapf(err, "store: decode %s", key)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", key)
	}
	return s.Set(ctx, key, raw)
}

package repository

import "context"

// KV is a single-namespace key-value store holding serialized values.
// Get returns domain.ErrNotFound for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

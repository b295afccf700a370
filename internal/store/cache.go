package store

import (
	"context"
	"time"
)

// Cache is a byte-valued key/value cache with expiry.
// Get returns ErrNotFound for a missing or expired key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

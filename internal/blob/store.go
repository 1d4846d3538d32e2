// Package blob abstracts the object store that holds reference inputs and
// generated assets.
package blob

import (
	"context"
	"time"
)

// Store is the narrow surface job handlers need from object storage.
type Store interface {
	// Download fetches the object at key.
	Download(ctx context.Context, key string) ([]byte, error)
	// Upload persists data at key and returns the canonical storage key.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// SignURL returns a URL for fetching the object, valid for ttl.
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

package ports

import (
	"context"

	"github.com/mikey/mail-lens/internal/core"
)

// CacheRepository defines the interface for caching embedding vectors
type CacheRepository interface {
	// Get retrieves a cached vector by key, or core.ErrCacheMiss
	Get(ctx context.Context, key string) (*core.CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *core.CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error

	// Stop stops background cleanup and releases the backend
	Stop()
}

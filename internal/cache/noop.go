package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when caching is disabled or Redis is unavailable - all operations
// succeed but nothing is stored (always a miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetNeighbors always returns nil (cache miss)
func (c *NoOpCache) GetNeighbors(ctx context.Context, key string) (*NeighborResult, error) {
	return nil, nil
}

// SetNeighbors does nothing and always succeeds
func (c *NoOpCache) SetNeighbors(ctx context.Context, key string, result *NeighborResult, ttl time.Duration) error {
	return nil
}

// Flush does nothing and always succeeds
func (c *NoOpCache) Flush(ctx context.Context) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache stores neighbour rankings, which cost a full scan of the model to
// compute.
type Cache interface {
	// GetNeighbors retrieves a cached ranking by key
	// Returns nil if not found
	GetNeighbors(ctx context.Context, key string) (*NeighborResult, error)

	// SetNeighbors stores a ranking with TTL
	SetNeighbors(ctx context.Context, key string, result *NeighborResult, ttl time.Duration) error

	// Flush removes every cached ranking
	Flush(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// NeighborResult is a cached /api/neighbors answer.
type NeighborResult struct {
	Neighbors []Neighbor `json:"neighbors"`
}

// Neighbor is one ranked word.
type Neighbor struct {
	Word  string  `json:"word"`
	Score float32 `json:"score"`
}

// GenerateCacheKey derives a stable key for a neighbour query against the
// model identified by modelID. Word order within each list matters, since
// it matches the order the caller sent.
func GenerateCacheKey(modelID string, positive, negative []string, topK int) string {
	raw, _ := json.Marshal(struct {
		Model    string   `json:"m"`
		Positive []string `json:"p"`
		Negative []string `json:"n"`
		TopK     int      `json:"k"`
	}{modelID, positive, negative, topK})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache implements the Cache interface correctly
func TestNoOpCache(t *testing.T) {
	var cache Cache = NewNoOpCache()
	ctx := context.Background()

	// GetNeighbors - should always return nil (cache miss)
	result, err := cache.GetNeighbors(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result (cache miss), got %v", result)
	}

	// SetNeighbors - should succeed silently
	err = cache.SetNeighbors(ctx, "test-key", &NeighborResult{
		Neighbors: []Neighbor{{Word: "queen", Score: 0.71}},
	}, 1*time.Hour)
	if err != nil {
		t.Errorf("Expected no error on SetNeighbors, got %v", err)
	}

	// Verify it still returns nil (nothing was actually cached)
	result, err = cache.GetNeighbors(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result (no-op cache doesn't store), got %v", result)
	}

	if err := cache.Flush(ctx); err != nil {
		t.Errorf("Expected no error on Flush, got %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestGenerateCacheKey(t *testing.T) {
	base := GenerateCacheKey("vectors.bin", []string{"king", "woman"}, []string{"man"}, 10)

	if base != GenerateCacheKey("vectors.bin", []string{"king", "woman"}, []string{"man"}, 10) {
		t.Error("expected identical queries to share a key")
	}

	variants := map[string]string{
		"model":    GenerateCacheKey("other.bin", []string{"king", "woman"}, []string{"man"}, 10),
		"topK":     GenerateCacheKey("vectors.bin", []string{"king", "woman"}, []string{"man"}, 5),
		"sides":    GenerateCacheKey("vectors.bin", []string{"king", "woman", "man"}, nil, 10),
		"swapped":  GenerateCacheKey("vectors.bin", []string{"man"}, []string{"king", "woman"}, 10),
		"boundary": GenerateCacheKey("vectors.bin", []string{"kingwoman"}, []string{"man"}, 10),
	}
	for name, key := range variants {
		if key == base {
			t.Errorf("%s: expected a different key", name)
		}
	}
	if len(base) != 64 {
		t.Errorf("expected hex sha256 key, got %q", base)
	}
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/leadfactory/leadscore/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, "c", []byte("3"), time.Minute)

		// Touch "a" so "b" becomes the oldest
		_, _ = smallCache.Get(ctx, "a")

		// Adding a fourth entry evicts "b"
		_ = smallCache.Set(ctx, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, "a")
		if val == nil {
			t.Error("expected 'a' to survive eviction")
		}
	})
}

func TestLRUCache_ScoreResults(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	result := &domain.ScoreResult{
		ID:           "score-001",
		BusinessID:   "biz-001",
		OverallScore: 72.5,
		Tier:         "B",
		Contributions: map[string]float64{
			"seo_low":   50,
			"slow_site": 22.5,
		},
		RulesVersion: "abc123",
		Timestamp:    time.Now().UTC(),
	}

	t.Run("SetAndGetScore", func(t *testing.T) {
		err := cache.SetScore(ctx, "abc123", "checksum-1", result, time.Minute)
		if err != nil {
			t.Fatalf("SetScore failed: %v", err)
		}

		got, err := cache.GetScore(ctx, "abc123", "checksum-1")
		if err != nil {
			t.Fatalf("GetScore failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected a cached score")
		}
		if got.ID != result.ID {
			t.Errorf("expected ID %s, got %s", result.ID, got.ID)
		}
		if got.OverallScore != result.OverallScore {
			t.Errorf("expected score %v, got %v", result.OverallScore, got.OverallScore)
		}
		if len(got.Contributions) != 2 {
			t.Errorf("expected 2 contributions, got %d", len(got.Contributions))
		}
	})

	t.Run("DifferentRulesVersionMisses", func(t *testing.T) {
		got, err := cache.GetScore(ctx, "def456", "checksum-1")
		if err != nil {
			t.Fatalf("GetScore failed: %v", err)
		}
		if got != nil {
			t.Error("a new rules version must miss old entries")
		}
	})

	t.Run("DifferentChecksumMisses", func(t *testing.T) {
		got, err := cache.GetScore(ctx, "abc123", "checksum-2")
		if err != nil {
			t.Fatalf("GetScore failed: %v", err)
		}
		if got != nil {
			t.Error("a different assessment must miss")
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.Close()

		if _, ok := c.(*LRUCache); !ok {
			t.Errorf("expected *LRUCache, got %T", c)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported cache type")
		}
	})
}

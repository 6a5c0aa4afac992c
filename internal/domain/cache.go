package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. Score results are
// cached keyed by (rules version, assessment checksum), so publishing a
// new rule set naturally invalidates prior entries.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetScore retrieves a cached score result.
	GetScore(ctx context.Context, rulesVersion, assessmentChecksum string) (*ScoreResult, error)

	// SetScore caches a score result.
	SetScore(ctx context.Context, rulesVersion, assessmentChecksum string, result *ScoreResult, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ScoreCacheKey builds the cache key for a score result.
func ScoreCacheKey(rulesVersion, assessmentChecksum string) string {
	return "score:" + rulesVersion + ":" + assessmentChecksum
}

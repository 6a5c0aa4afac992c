// Package domain defines the core interfaces and types for leadscore.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Assessment is the input record produced by the upstream assessment
// pipeline for a single business. Metrics is a nested mapping of
// namespaced values (performance scores, security flags, visual rubric
// scores, SEO metrics) addressed by dotted field paths. The scoring
// engine treats it as read-only.
type Assessment struct {
	// BusinessID identifies the assessed business.
	BusinessID string `json:"businessId"`

	// Vertical is the business category (e.g. "restaurant", "medical").
	// Rules may carry per-vertical weight overrides keyed by this value.
	Vertical string `json:"vertical,omitempty"`

	// Metrics holds the assessment data, e.g.
	// {"seo": {"organic_keywords": 3}, "listing": {"reviews": 10}}.
	Metrics map[string]any `json:"metrics"`

	// CompletedAt is when the upstream pipeline finished the assessment.
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Field resolves a dotted path into Metrics. Missing intermediate keys
// resolve to absent rather than panicking.
func (a *Assessment) Field(path string) (any, bool) {
	if a == nil || a.Metrics == nil || path == "" {
		return nil, false
	}

	var cur any = a.Metrics
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Checksum returns a stable hash of the assessment content, used as a
// cache key component so identical assessments scored under the same
// rules version hit the cache.
func (a *Assessment) Checksum() string {
	data, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

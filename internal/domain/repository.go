package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Score result operations
	SaveScoreResult(ctx context.Context, result *ScoreResult) error
	GetScoreResult(ctx context.Context, id string) (*ScoreResult, error)
	ListScoresByBusiness(ctx context.Context, businessID string, since time.Time) ([]*ScoreResult, error)

	// Reload audit operations: one record per reload attempt, success
	// or failure, with the full validation error list.
	SaveReloadAudit(ctx context.Context, audit *ReloadAudit) error
	ListReloadAudits(ctx context.Context, limit int) ([]*ReloadAudit, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ReloadAudit records one reload attempt for operator forensics.
type ReloadAudit struct {
	ID             string            `json:"id"`
	SourceChecksum string            `json:"sourceChecksum"`
	Success        bool              `json:"success"`
	Errors         []ValidationError `json:"errors,omitempty"`
	Trigger        string            `json:"trigger"` // "explicit", "watch", "startup"
	AttemptedAt    time.Time         `json:"attemptedAt"`
	DurationMs     int64             `json:"durationMs"`
}

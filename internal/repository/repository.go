// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leadfactory/leadscore/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveScoreResult stores a score result.
func (r *SQLRepository) SaveScoreResult(ctx context.Context, result *domain.ScoreResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: score result id is required", ErrInvalidInput)
	}

	contributions, _ := json.Marshal(result.Contributions)

	query := `
		INSERT INTO score_results (
			id, business_id, vertical, overall_score, tier,
			contributions, rules_version, timestamp, process_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.ID, result.BusinessID, result.Vertical,
		result.OverallScore, result.Tier,
		string(contributions), result.RulesVersion,
		result.Timestamp, result.ProcessMs,
	)
	return err
}

// GetScoreResult retrieves a score result by ID.
func (r *SQLRepository) GetScoreResult(ctx context.Context, id string) (*domain.ScoreResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, business_id, vertical, overall_score, tier,
			   contributions, rules_version, timestamp, process_ms
		FROM score_results
		WHERE id = ?
	`

	var result domain.ScoreResult
	var contributions string

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&result.ID, &result.BusinessID, &result.Vertical,
		&result.OverallScore, &result.Tier,
		&contributions, &result.RulesVersion,
		&result.Timestamp, &result.ProcessMs,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if contributions != "" {
		json.Unmarshal([]byte(contributions), &result.Contributions)
	}

	return &result, nil
}

// ListScoresByBusiness retrieves score history for a business, newest first.
func (r *SQLRepository) ListScoresByBusiness(ctx context.Context, businessID string, since time.Time) ([]*domain.ScoreResult, error) {
	if businessID == "" {
		return nil, fmt.Errorf("%w: businessID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, business_id, vertical, overall_score, tier,
			   contributions, rules_version, timestamp, process_ms
		FROM score_results
		WHERE business_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), businessID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ScoreResult
	for rows.Next() {
		var result domain.ScoreResult
		var contributions string

		if err := rows.Scan(
			&result.ID, &result.BusinessID, &result.Vertical,
			&result.OverallScore, &result.Tier,
			&contributions, &result.RulesVersion,
			&result.Timestamp, &result.ProcessMs,
		); err != nil {
			return nil, err
		}

		if contributions != "" {
			json.Unmarshal([]byte(contributions), &result.Contributions)
		}

		results = append(results, &result)
	}

	return results, rows.Err()
}

// SaveReloadAudit stores one reload attempt.
func (r *SQLRepository) SaveReloadAudit(ctx context.Context, audit *domain.ReloadAudit) error {
	if audit == nil || audit.ID == "" {
		return fmt.Errorf("%w: audit id is required", ErrInvalidInput)
	}

	errs, _ := json.Marshal(audit.Errors)

	success := 0
	if audit.Success {
		success = 1
	}

	query := `
		INSERT INTO rule_set_audit (
			id, source_checksum, success, errors, trigger_source, attempted_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		audit.ID, audit.SourceChecksum, success,
		string(errs), audit.Trigger, audit.AttemptedAt, audit.DurationMs,
	)
	return err
}

// ListReloadAudits retrieves recent reload attempts, newest first.
func (r *SQLRepository) ListReloadAudits(ctx context.Context, limit int) ([]*domain.ReloadAudit, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source_checksum, success, errors, trigger_source, attempted_at, duration_ms
		FROM rule_set_audit
		ORDER BY attempted_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []*domain.ReloadAudit
	for rows.Next() {
		var audit domain.ReloadAudit
		var errs string
		var success int

		if err := rows.Scan(
			&audit.ID, &audit.SourceChecksum, &success,
			&errs, &audit.Trigger, &audit.AttemptedAt, &audit.DurationMs,
		); err != nil {
			return nil, err
		}

		audit.Success = success == 1
		if errs != "" {
			json.Unmarshal([]byte(errs), &audit.Errors)
		}

		audits = append(audits, &audit)
	}

	return audits, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

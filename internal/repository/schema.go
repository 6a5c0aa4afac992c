package repository

// Schema definitions for the leadscore database.
// Compatible with both SQLite and PostgreSQL.

const schemaScoreResults = `
CREATE TABLE IF NOT EXISTS score_results (
    id TEXT PRIMARY KEY,
    business_id TEXT NOT NULL,
    vertical TEXT,
    overall_score REAL NOT NULL,
    tier TEXT NOT NULL,
    contributions TEXT NOT NULL,
    rules_version TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    process_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_score_results_business ON score_results(business_id);
CREATE INDEX IF NOT EXISTS idx_score_results_tier ON score_results(tier);
CREATE INDEX IF NOT EXISTS idx_score_results_timestamp ON score_results(business_id, timestamp);
`

// schemaRuleSetAudit records every reload attempt, accepted or rejected,
// with the full validation error list for operator forensics.
const schemaRuleSetAudit = `
CREATE TABLE IF NOT EXISTS rule_set_audit (
    id TEXT PRIMARY KEY,
    source_checksum TEXT NOT NULL,
    success INTEGER NOT NULL,
    errors TEXT,
    trigger_source TEXT NOT NULL,
    attempted_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rule_set_audit_attempted ON rule_set_audit(attempted_at);
CREATE INDEX IF NOT EXISTS idx_rule_set_audit_checksum ON rule_set_audit(source_checksum);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaScoreResults,
		schemaRuleSetAudit,
	}
}

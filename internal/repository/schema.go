package repository

import "context"

// Portable DDL: every type name here carries the intended affinity on both
// Postgres and SQLite. Timestamps are stored as Unix seconds.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS mapping_records (
		form_family     TEXT NOT NULL,
		detected_field  TEXT NOT NULL,
		canonical_field TEXT NOT NULL,
		confidence      DOUBLE PRECISION NOT NULL,
		frequency       BIGINT NOT NULL,
		last_used_at    BIGINT NOT NULL,
		created_at      BIGINT NOT NULL,
		PRIMARY KEY (form_family, detected_field, canonical_field)
	)`,
	`CREATE TABLE IF NOT EXISTS cache_entries (
		fingerprint TEXT PRIMARY KEY,
		form_type   TEXT NOT NULL,
		payload     TEXT NOT NULL,
		created_at  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mapping_records_family
		ON mapping_records (form_family)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

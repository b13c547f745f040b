package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The DDL is portable between PostgreSQL and SQLite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clinical_trials (
        trial_id VARCHAR(450) PRIMARY KEY,
        title TEXT NOT NULL,
        start_date DATE NOT NULL,
        end_date DATE NULL,
        participants INTEGER NOT NULL DEFAULT 0,
        status VARCHAR(16) NOT NULL,
        duration INTEGER NOT NULL DEFAULT 0,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        CHECK (end_date IS NULL OR end_date >= start_date)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_clinical_trials_status ON clinical_trials (status)`,
}

// EnsureSchema creates the clinical_trials table and its indexes when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Package migrations applies the database schema. Statements are
// idempotent so Apply can run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS login_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ip TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		contact_name TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		address TEXT,
		notes TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS departments (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sample_types (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_types (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		department_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
		unit TEXT,
		unit_type TEXT,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		project_id BIGINT REFERENCES projects(id),
		sample_type_id BIGINT NOT NULL REFERENCES sample_types(id),
		status TEXT NOT NULL,
		description TEXT,
		received_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sample_departments (
		sample_id BIGINT NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
		department_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		PRIMARY KEY (sample_id, department_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sample_test_types (
		sample_id BIGINT NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
		test_type_id BIGINT NOT NULL REFERENCES test_types(id) ON DELETE CASCADE,
		PRIMARY KEY (sample_id, test_type_id)
	)`,
	`CREATE TABLE IF NOT EXISTS result_entries (
		id BIGSERIAL PRIMARY KEY,
		sample_id BIGINT NOT NULL UNIQUE REFERENCES samples(id) ON DELETE CASCADE,
		notes TEXT,
		is_committed BOOLEAN NOT NULL DEFAULT FALSE,
		committed_at TIMESTAMPTZ,
		committed_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS result_values (
		id BIGSERIAL PRIMARY KEY,
		entry_id BIGINT NOT NULL REFERENCES result_entries(id) ON DELETE CASCADE,
		test_type_id BIGINT NOT NULL,
		test_type TEXT NOT NULL,
		value TEXT NOT NULL,
		unit TEXT,
		unit_type TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id BIGSERIAL PRIMARY KEY,
		result_entry_id BIGINT NOT NULL REFERENCES result_entries(id),
		report_number TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		report_data JSONB NOT NULL,
		fingerprint TEXT NOT NULL,
		notes TEXT,
		view_key TEXT UNIQUE,
		created_by BIGINT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		validated_at TIMESTAMPTZ,
		validated_by BIGINT REFERENCES users(id),
		finalized_at TIMESTAMPTZ,
		finalized_by BIGINT REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS sample_activities (
		id BIGSERIAL PRIMARY KEY,
		sample_id BIGINT NOT NULL,
		user_id BIGINT,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_activities_sample ON sample_activities (sample_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS org_settings (
		id BIGSERIAL PRIMARY KEY,
		lab_name TEXT NOT NULL,
		address TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		report_footer TEXT,
		logo_url TEXT,
		updated_by BIGINT,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS request_logs (
		id BIGSERIAL PRIMARY KEY,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		client_ip TEXT NOT NULL DEFAULT '',
		user_id BIGINT,
		trace_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs (created_at)`,
}

// Count reports how many statements Apply will execute.
func Count() int { return len(statements) }

// Apply executes the schema statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

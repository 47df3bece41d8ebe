package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateDirectoryTables, downCreateDirectoryTables)
}

func upCreateDirectoryTables(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE centers (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		);
		CREATE INDEX centers_tenant_idx ON centers (tenant_id);

		CREATE TABLE tenant_members (
			tenant_id UUID NOT NULL,
			user_id UUID NOT NULL,
			role TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, user_id)
		);

		CREATE TABLE tutor_centers (
			tenant_id UUID NOT NULL,
			tutor_id UUID NOT NULL,
			center_id UUID NOT NULL REFERENCES centers(id) ON DELETE CASCADE,
			PRIMARY KEY (tenant_id, tutor_id, center_id)
		);

		CREATE TABLE students (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			full_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		);
		CREATE INDEX students_tenant_idx ON students (tenant_id);

		CREATE TABLE groups (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			center_id UUID NOT NULL REFERENCES centers(id) ON DELETE CASCADE,
			type TEXT NOT NULL CHECK (type IN ('GROUP', 'CLASS')),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at TIMESTAMPTZ
		);

		CREATE TABLE group_members (
			tenant_id UUID NOT NULL,
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			PRIMARY KEY (group_id, student_id)
		);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateDirectoryTables(ctx context.Context, tx *sql.Tx) error {
	query := `
		DROP TABLE IF EXISTS group_members;
		DROP TABLE IF EXISTS groups;
		DROP TABLE IF EXISTS students;
		DROP TABLE IF EXISTS tutor_centers;
		DROP TABLE IF EXISTS tenant_members;
		DROP TABLE IF EXISTS centers;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

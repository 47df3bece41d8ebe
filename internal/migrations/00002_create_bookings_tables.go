package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookingsTables, downCreateBookingsTables)
}

// Booking identity is enforced by two partial unique indexes: one-on-one
// sessions are keyed by student, group and class sessions by group.
func upCreateBookingsTables(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE bookings (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			center_id UUID NOT NULL REFERENCES centers(id),
			tutor_id UUID NOT NULL,
			session_type TEXT NOT NULL CHECK (session_type IN ('ONE_ON_ONE', 'GROUP', 'CLASS')),
			student_id UUID REFERENCES students(id),
			group_id UUID REFERENCES groups(id),
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			zoom_link TEXT,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (end_at > start_at),
			CHECK (
				(session_type = 'ONE_ON_ONE' AND student_id IS NOT NULL AND group_id IS NULL) OR
				(session_type <> 'ONE_ON_ONE' AND group_id IS NOT NULL AND student_id IS NULL)
			)
		);

		CREATE UNIQUE INDEX bookings_one_on_one_identity
			ON bookings (tenant_id, center_id, tutor_id, student_id, session_type, start_at)
			WHERE session_type = 'ONE_ON_ONE';

		CREATE UNIQUE INDEX bookings_group_identity
			ON bookings (tenant_id, center_id, tutor_id, group_id, session_type, start_at)
			WHERE group_id IS NOT NULL;

		CREATE INDEX bookings_tenant_start_idx ON bookings (tenant_id, start_at);

		CREATE TABLE booking_students (
			booking_id UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
			student_id UUID NOT NULL REFERENCES students(id),
			tenant_id UUID NOT NULL,
			PRIMARY KEY (booking_id, student_id)
		);
		CREATE INDEX booking_students_student_idx ON booking_students (tenant_id, student_id);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateBookingsTables(ctx context.Context, tx *sql.Tx) error {
	query := `
		DROP TABLE IF EXISTS booking_students;
		DROP TABLE IF EXISTS bookings;
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

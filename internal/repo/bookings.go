package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
)

var _ scheduling.BookingStore = (*Client)(nil)

// LoadBookings returns every booking of the tenant starting exactly at one of
// starts, with its enrolled students, in a single query.
func (c *Client) LoadBookings(ctx context.Context, tenantID uuid.UUID, starts []time.Time) (*scheduling.BookingIndex, error) {
	index := scheduling.NewBookingIndex()
	if len(starts) == 0 {
		return index, nil
	}

	instants := make([]driver.Value, 0, len(starts))
	for _, s := range starts {
		instants = append(instants, s.UTC())
	}

	b := c.builder()
	bk := b.Table(tableBookings).As("b")
	bs := b.Table(tableBookingStudents).As("bs")
	query, args := b.Select(
		bk.C("id"), bk.C("center_id"), bk.C("tutor_id"), bk.C("group_id"),
		bk.C("session_type"), bk.C("start_at"), bs.C("student_id"),
	).
		From(bk).
		LeftJoin(bs).On(bk.C("id"), bs.C("booking_id")).
		Where(entsql.And(
			entsql.EQ(bk.C("tenant_id"), tenantID),
			entsql.InValues(bk.C("start_at"), instants...),
		)).
		OrderBy(bk.C("start_at"), bk.C("id")).
		Query()

	var rows entsql.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, wrap("load bookings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eb          scheduling.ExistingBooking
			groupID     uuid.NullUUID
			studentID   uuid.NullUUID
			sessionType string
		)
		if err := rows.Scan(&eb.ID, &eb.CenterID, &eb.TutorID, &groupID, &sessionType, &eb.StartAt, &studentID); err != nil {
			return nil, wrap("load bookings", err)
		}
		eb.SessionType = scheduling.SessionType(sessionType)
		eb.StartAt = eb.StartAt.UTC()
		if groupID.Valid {
			g := groupID.UUID
			eb.GroupID = &g
		}
		if studentID.Valid {
			eb.StudentIDs = []uuid.UUID{studentID.UUID}
		}
		index.Put(eb)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load bookings", err)
	}
	return index, nil
}

// ---------------------------------------------------------------------------
// Write batch
// ---------------------------------------------------------------------------

const batchSavepoint = "booking_line"

type bookingTx struct {
	tx      dialect.Tx
	dialect string
}

func (c *Client) BeginBatch(ctx context.Context) (scheduling.BookingTx, error) {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, wrap("begin batch", err)
	}
	return &bookingTx{tx: tx, dialect: c.drv.Dialect()}, nil
}

// InsertBooking writes one booking with its roster links inside a savepoint.
// On an identity collision the savepoint is rolled back and the error wraps
// scheduling.ErrDuplicateBooking; the transaction stays usable.
func (t *bookingTx) InsertBooking(ctx context.Context, nb scheduling.NewBooking) error {
	if err := t.exec(ctx, "SAVEPOINT "+batchSavepoint); err != nil {
		return wrap("savepoint", err)
	}

	if err := t.insert(ctx, nb); err != nil {
		if rbErr := t.exec(ctx, "ROLLBACK TO SAVEPOINT "+batchSavepoint); rbErr != nil {
			return wrap("rollback to savepoint", errors.Join(err, rbErr))
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", scheduling.ErrDuplicateBooking, err)
		}
		return wrap("insert booking", err)
	}

	return wrap("release savepoint", t.exec(ctx, "RELEASE SAVEPOINT "+batchSavepoint))
}

func (t *bookingTx) insert(ctx context.Context, nb scheduling.NewBooking) error {
	b := entsql.Dialect(t.dialect)

	query, args := b.Insert(tableBookings).
		Columns("id", "tenant_id", "center_id", "tutor_id", "session_type",
			"student_id", "group_id", "start_at", "end_at", "zoom_link", "created_by", "created_at").
		Values(nb.ID, nb.TenantID, nb.CenterID, nb.TutorID, string(nb.SessionType),
			nullUUID(nb.StudentID), nullUUID(nb.GroupID), nb.StartAt.UTC(), nb.EndAt.UTC(),
			nb.ZoomLink, nb.CreatedBy, time.Now().UTC()).
		Query()
	if err := t.tx.Exec(ctx, query, args, nil); err != nil {
		return err
	}

	if len(nb.StudentIDs) == 0 {
		return nil
	}
	ins := b.Insert(tableBookingStudents).Columns("booking_id", "student_id", "tenant_id")
	for _, sid := range nb.StudentIDs {
		ins.Values(nb.ID, sid, nb.TenantID)
	}
	query, args = ins.Query()
	return t.tx.Exec(ctx, query, args, nil)
}

func (t *bookingTx) exec(ctx context.Context, stmt string) error {
	return t.tx.Exec(ctx, stmt, []any{}, nil)
}

func (t *bookingTx) Commit() error   { return wrap("commit batch", t.tx.Commit()) }
func (t *bookingTx) Rollback() error { return wrap("rollback batch", t.tx.Rollback()) }

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

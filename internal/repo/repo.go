// Package repo implements the scheduling storage ports on PostgreSQL using
// ent's SQL builder and driver.
package repo

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"github.com/lib/pq"
)

const (
	tableCenters         = "centers"
	tableTenantMembers   = "tenant_members"
	tableTutorCenters    = "tutor_centers"
	tableStudents        = "students"
	tableGroups          = "groups"
	tableGroupMembers    = "group_members"
	tableBookings        = "bookings"
	tableBookingStudents = "booking_students"
)

// Client wraps an ent SQL driver.
type Client struct {
	drv *entsql.Driver
}

func NewClient(drv *entsql.Driver) *Client {
	return &Client{drv: drv}
}

func (c *Client) builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.drv.Dialect())
}

// Ping checks the underlying connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.drv.DB().PingContext(ctx)
}

func (c *Client) Close() error {
	return c.drv.Close()
}

// queryRow runs sel and scans the first row into dest. It reports false when
// no row matched.
func (c *Client) queryRow(ctx context.Context, sel *entsql.Selector, dest ...any) (bool, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(dest...); err != nil {
		return false, err
	}
	return true, rows.Err()
}

func (c *Client) exists(ctx context.Context, sel *entsql.Selector) (bool, error) {
	var v any
	return c.queryRow(ctx, sel.Limit(1), &v)
}

// isUniqueViolation reports whether err comes from a unique index.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return sqlgraph.IsUniqueConstraintError(err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("repo: %s: %w", op, err)
}

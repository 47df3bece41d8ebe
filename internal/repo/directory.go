package repo

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
)

var _ scheduling.Directory = (*Client)(nil)

func (c *Client) CenterExists(ctx context.Context, tenantID, centerID uuid.UUID) (bool, error) {
	b := c.builder()
	t := b.Table(tableCenters)
	sel := b.Select(t.C("id")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("id"), centerID),
		entsql.IsNull(t.C("deleted_at")),
	))
	ok, err := c.exists(ctx, sel)
	return ok, wrap("center exists", err)
}

// MemberRole returns the role of an active tenant member.
func (c *Client) MemberRole(ctx context.Context, tenantID, userID uuid.UUID) (string, bool, error) {
	b := c.builder()
	t := b.Table(tableTenantMembers)
	sel := b.Select(t.C("role")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("user_id"), userID),
		entsql.EQ(t.C("is_active"), true),
	))
	var role string
	ok, err := c.queryRow(ctx, sel.Limit(1), &role)
	if err != nil {
		return "", false, wrap("member role", err)
	}
	return role, ok, nil
}

func (c *Client) HasRole(ctx context.Context, tenantID, userID uuid.UUID, role string) (bool, error) {
	got, ok, err := c.MemberRole(ctx, tenantID, userID)
	if err != nil || !ok {
		return false, err
	}
	return got == role, nil
}

func (c *Client) TutorAssigned(ctx context.Context, tenantID, tutorID, centerID uuid.UUID) (bool, error) {
	b := c.builder()
	t := b.Table(tableTutorCenters)
	sel := b.Select(t.C("tutor_id")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("tutor_id"), tutorID),
		entsql.EQ(t.C("center_id"), centerID),
	))
	ok, err := c.exists(ctx, sel)
	return ok, wrap("tutor assigned", err)
}

func (c *Client) StudentExists(ctx context.Context, tenantID, studentID uuid.UUID) (bool, error) {
	b := c.builder()
	t := b.Table(tableStudents)
	sel := b.Select(t.C("id")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("id"), studentID),
		entsql.IsNull(t.C("deleted_at")),
	))
	ok, err := c.exists(ctx, sel)
	return ok, wrap("student exists", err)
}

func (c *Client) FindGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*scheduling.Group, error) {
	b := c.builder()
	t := b.Table(tableGroups)
	sel := b.Select(t.C("id"), t.C("center_id"), t.C("type")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("id"), groupID),
		entsql.IsNull(t.C("deleted_at")),
	))

	var (
		g   scheduling.Group
		typ string
	)
	ok, err := c.queryRow(ctx, sel.Limit(1), &g.ID, &g.CenterID, &typ)
	if err != nil {
		return nil, wrap("find group", err)
	}
	if !ok {
		return nil, nil
	}
	g.Type = scheduling.SessionType(typ)
	return &g, nil
}

func (c *Client) GroupRoster(ctx context.Context, tenantID, groupID uuid.UUID) ([]uuid.UUID, error) {
	b := c.builder()
	t := b.Table(tableGroupMembers)
	query, args := b.Select(t.C("student_id")).From(t).Where(entsql.And(
		entsql.EQ(t.C("tenant_id"), tenantID),
		entsql.EQ(t.C("group_id"), groupID),
	)).OrderBy(t.C("student_id")).Query()

	var rows entsql.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, wrap("group roster", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("group roster", err)
		}
		ids = append(ids, id)
	}
	return ids, wrap("group roster", rows.Err())
}

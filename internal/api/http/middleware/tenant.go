package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/tutorly/tutorly_backend/pkg/reqctx"
)

const (
	HeaderTenantID = "X-Tenant-ID"

	LocalsTenantID   = "tenant_id"
	LocalsUserID     = "user_id"
	LocalsMemberRole = "member_role"
)

// MemberLookup returns the role of an active tenant member.
type MemberLookup interface {
	MemberRole(ctx context.Context, tenantID, userID uuid.UUID) (string, bool, error)
}

// TenantContext binds the request to the tenant named by X-Tenant-ID. The
// authenticated user must be an active member; the member's role is kept
// for RequirePermission. Must run after AuthRequired.
func TenantContext(members MemberLookup) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := c.Get(HeaderTenantID)
		if raw == "" {
			return fiber.NewError(fiber.StatusBadRequest, "X-Tenant-ID header is required")
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid X-Tenant-ID value")
		}

		claims, ok := ClaimsFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		role, found, err := members.MemberRole(c.Context(), tenantID, claims.UserID)
		if err != nil {
			return err
		}
		if !found {
			return fiber.ErrForbidden
		}

		c.Locals(LocalsTenantID, tenantID.String())
		c.Locals(LocalsUserID, claims.UserID.String())
		c.Locals(LocalsMemberRole, role)
		c.SetContext(reqctx.WithActor(c.Context(), reqctx.Actor{
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
			TenantID:  tenantID,
			Role:      role,
		}))

		return c.Next()
	}
}

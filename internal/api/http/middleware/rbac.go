package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/tutorly/tutorly_backend/pkg/authorize"
)

// RequirePermission checks the member role set by TenantContext against
// the tenant domain.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		tid, _ := c.Locals(LocalsTenantID).(string)
		tenantID, err := uuid.Parse(tid)
		if err != nil {
			return fiber.ErrForbidden
		}

		memberRole, _ := c.Locals(LocalsMemberRole).(string)
		role, ok := authorize.RoleForMember(memberRole)
		if !ok {
			return fiber.ErrForbidden
		}

		if err := auth.MustEnforce(c.Context(), role, authorize.TenantDomain(tenantID), resource, action); err != nil {
			if errors.Is(err, authorize.ErrForbidden) {
				return fiber.ErrForbidden
			}
			return err
		}

		return c.Next()
	}
}

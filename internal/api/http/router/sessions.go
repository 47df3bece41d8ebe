package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/tutorly/tutorly_backend/internal/api/http/handler"
	"github.com/tutorly/tutorly_backend/pkg/authorize"
)

func (r *Router) registerSessionRoutes(
	api fiber.Router,
	sh *handler.SessionHandler,
	authRequired fiber.Handler,
	tenantCtx fiber.Handler,
	limit fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	// Authenticated + tenant-scoped, admins only
	generate := api.Group("/sessions/generate",
		authRequired,
		tenantCtx,
		requirePerm(authorize.ResourceSessionBatch, authorize.ActionExecute),
		limit,
	)

	generate.Post("/preview", sh.Preview)
	generate.Post("/commit", sh.Commit)
}

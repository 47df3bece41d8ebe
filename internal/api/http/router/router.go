package router

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/tutorly/tutorly_backend/config"
	"github.com/tutorly/tutorly_backend/internal/api/http/handler"
	"github.com/tutorly/tutorly_backend/internal/api/http/middleware"
	"github.com/tutorly/tutorly_backend/internal/repo"
	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
	"github.com/tutorly/tutorly_backend/pkg/authorize"
	pasetotoken "github.com/tutorly/tutorly_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg         *config.Config
	Redis       *redis.Client
	Auth        authorize.IAuthorization
	DB          *repo.Client
	SessionsSvc scheduling.Service
	PasetoMgr   *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.PasetoMgr, middleware.NewRedisSessions(r.p.Redis))
	tenantCtx := middleware.TenantContext(r.p.DB)

	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	limit := func(c fiber.Ctx) error { return c.Next() }
	if r.p.Cfg.Server.RateLimit.Enabled {
		limit = middleware.NewLimiter(r.p.Cfg.Server.RateLimit, fiberredis.NewFromConnection(r.p.Redis))
	}

	// 3. Initialize Handlers
	timeout := time.Duration(r.p.Cfg.Server.TimeoutSeconds) * time.Second
	sessionH := handler.NewSessionHandler(r.p.SessionsSvc, timeout, slog.Default())

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerSessionRoutes(api, sessionH, authRequired, tenantCtx, limit, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return r.p.DB.Ping(c.Context()) == nil },
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}

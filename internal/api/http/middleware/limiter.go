package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"

	"github.com/tutorly/tutorly_backend/config"
)

// NewLimiter applies a per-minute sliding window. Requests are keyed by
// tenant and user when TenantContext ran first, otherwise by client IP.
// A nil storage keeps counters in process memory.
func NewLimiter(cfg config.RateLimitConfig, storage fiber.Storage) fiber.Handler {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 60
	}
	return limiter.New(limiter.Config{
		Storage:           storage,
		Max:               limit,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c fiber.Ctx) string {
			tid, _ := c.Locals(LocalsTenantID).(string)
			uid, _ := c.Locals(LocalsUserID).(string)
			if tid != "" && uid != "" {
				return "rl:" + tid + ":" + uid
			}
			return "rl:ip:" + c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

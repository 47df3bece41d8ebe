package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pasetotoken "github.com/tutorly/tutorly_backend/pkg/paseto"
)

const LocalsClaims = "auth.claims"

type TokenVerifier interface {
	Verify(token string) (*pasetotoken.Claims, error)
}

// SessionStore reports whether a server-side session is still live.
type SessionStore interface {
	SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// RedisSessions looks sessions up under "session:<id>".
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func SessionKey(sessionID uuid.UUID) string {
	return "session:" + sessionID.String()
}

func (s *RedisSessions) SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, SessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AuthRequired validates a Bearer PASETO access token and checks its session.
// On success it stores *pasetotoken.Claims in c.Locals(LocalsClaims).
func AuthRequired(tokens TokenVerifier, sessions SessionStore) fiber.Handler {
	return func(c fiber.Ctx) error {
		scheme, token, found := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return fiber.ErrUnauthorized
		}

		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		active, err := sessions.SessionActive(c.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return fiber.ErrServiceUnavailable
			}
			return err
		}
		if !active {
			return fiber.ErrUnauthorized
		}

		c.Locals(LocalsClaims, claims)
		return c.Next()
	}
}

func ClaimsFromFiber(c fiber.Ctx) (*pasetotoken.Claims, bool) {
	cl, ok := c.Locals(LocalsClaims).(*pasetotoken.Claims)
	return cl, ok && cl != nil
}

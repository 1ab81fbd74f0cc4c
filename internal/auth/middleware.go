package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bookbrainz-site/internal/engine"
	"bookbrainz-site/internal/metadata"
)

const localsKey = "session"

// Middleware resolves the caller's session. A bearer Authorization header
// takes precedence over the session cookie. Anonymous requests pass
// through with no session.
func Middleware(sessions *Sessions, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if header := c.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				return engine.UnauthorizedError("Invalid auth header format")
			}
			userID, err := subject(parts[1], secret)
			if err != nil {
				return engine.UnauthorizedError("Invalid or expired token")
			}
			c.Locals(localsKey, &metadata.Session{UserID: userID, BearerToken: parts[1]})
			return c.Next()
		}

		sess, err := sessions.Load(c)
		if err != nil {
			return err
		}
		if sess != nil {
			c.Locals(localsKey, sess)
		}
		return c.Next()
	}
}

// RequireSession rejects requests without a live session.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetSession(c).Authenticated() {
			return engine.UnauthorizedError("Sign in required")
		}
		return c.Next()
	}
}

// GetSession returns the request's session, nil when anonymous.
func GetSession(c *fiber.Ctx) *metadata.Session {
	sess, _ := c.Locals(localsKey).(*metadata.Session)
	return sess
}

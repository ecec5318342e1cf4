package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookieName  = "farmtrade.sid"
	SessionRedisPrefix = "session:"
	sessionLookupLimit = 2 * time.Second
)

// SessionUser is the shape stored in the session under "user".
type SessionUser struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	PartyID string `json:"party_id"`
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// SessionWithClient returns a Fiber middleware that loads the session from Redis.
// The cookie may be "s:<id>" or "s:<id>.<signature>"; only the id is used.
// Sessions are read-only here; login and logout belong to the identity service.
func SessionWithClient(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		if strings.HasPrefix(sessionID, "s:") {
			parts := strings.SplitN(sessionID[2:], ".", 2)
			sessionID = parts[0]
		}

		var data map[string]interface{}
		if sessionID != "" {
			ctx, cancel := context.WithTimeout(c.UserContext(), sessionLookupLimit)
			b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
			cancel()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			} else if !errors.Is(err, redis.Nil) {
				log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("Session lookup failed")
			}
		}

		c.Locals("session_id", sessionID)
		if u, ok := data["user"]; ok {
			c.Locals(userLocal, u)
		} else {
			c.Locals(userLocal, nil)
		}
		return c.Next()
	}
}

// GetSessionID returns the current session ID from context.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}

// SetSessionUser places user in Locals in the same map shape a stored session produces.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	c.Locals(userLocal, map[string]interface{}{
		"user_id":  user.UserID,
		"role":     user.Role,
		"party_id": user.PartyID,
	})
}

// Package gateway holds the HTTP controllers. Each controller is a thin
// shim: parse the request, call the session manager or the session's
// connection, shape the response.
package gateway

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"wagateway/internal/engine"
	"wagateway/internal/session"
	"wagateway/pkg/router"
)

type Gateway struct {
	manager *session.Manager
}

func New(manager *session.Manager) *Gateway {
	return &Gateway{manager: manager}
}

// sessionID extracts the session identity placed by the auth middleware,
// falling back to the path parameter for routes behind the master key.
func sessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals("session_id").(string); ok && id != "" {
		return id
	}
	return c.Params("session_id")
}

// conn resolves the authenticated session's live connection. A non-nil
// error is the already-written HTTP response.
func (g *Gateway) conn(c *fiber.Ctx) (engine.Conn, string, error) {
	id := sessionID(c)
	sess, ok := g.manager.Get(id)
	if !ok {
		return nil, id, router.ResponseNotFound(c, "Session not found")
	}
	if !sess.IsLoggedIn() {
		return nil, id, router.ResponseUnauthorized(c, "Session is not logged in")
	}
	return sess.Conn(), id, nil
}

func contextWithTimeout(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

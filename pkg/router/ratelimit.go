package router

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// HttpRateLimit limits each client IP to rps requests per second with a
// burst of 2*rps. A non-positive rps disables the middleware.
func HttpRateLimit(rps int) fiber.Handler {
	if rps <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), rps*2)
			limiters[ip] = limiter
		}
		return limiter
	}

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if v := c.Locals("remote_ip"); v != nil {
			if remote, ok := v.(string); ok && remote != "" {
				ip = remote
			}
		}

		if !limiterFor(ip).Allow() {
			return ResponseTooManyRequests(c, "Rate limit exceeded")
		}
		return c.Next()
	}
}

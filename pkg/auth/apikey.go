package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"wagateway/pkg/router"
)

// APIKeyAuth validates the X-API-Key header for gateway-level endpoints
func APIKeyAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return router.ResponseUnauthorized(c, "Missing X-API-Key header")
		}

		if APIKey == "" {
			return router.ResponseInternalError(c, "API key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(APIKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid API key")
		}

		return c.Next()
	}
}

func validAPIKey(candidate string) bool {
	return APIKey != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(APIKey)) == 1
}

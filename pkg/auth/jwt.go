package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"wagateway/pkg/env"
	"wagateway/pkg/router"
)

type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// IssueSessionToken mints a bearer token scoped to one session id.
func IssueSessionToken(sessionID string) (string, error) {
	if JWTSecretKey == "" {
		return "", errors.New("jwt secret key not configured")
	}

	ttl := env.GetEnvDurationOrDefault("JWT_TOKEN_TTL", 720*time.Hour)
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecretKey))
}

func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// SessionAuth authorizes session-scoped routes. The master X-API-Key is
// always accepted; otherwise a Bearer token bound to the :session_id path
// parameter is required.
func SessionAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if validAPIKey(c.Get("X-API-Key")) {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		claims, err := ValidateSessionToken(parts[1])
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		if sessionID := c.Params("session_id"); sessionID != "" && claims.SessionID != sessionID {
			return router.ResponseUnauthorized(c, "Token is not valid for this session")
		}

		c.Locals("session_id", claims.SessionID)
		return c.Next()
	}
}

package auth

import (
	"wagateway/pkg/env"
)

// APIKey guards session creation/deletion and, as a master key, every
// session-scoped route.
var APIKey string

// JWTSecretKey signs per-session bearer tokens. Falls back to the API key
// when not configured separately.
var JWTSecretKey string

func init() {
	APIKey, _ = env.GetEnvString("API_KEY")
	JWTSecretKey = env.GetEnvStringOrDefault("JWT_SECRET_KEY", APIKey)
}

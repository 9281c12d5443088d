package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestKeys(t *testing.T) {
	t.Helper()
	prevAPIKey, prevJWT := APIKey, JWTSecretKey
	APIKey = "master-key"
	JWTSecretKey = "jwt-secret"
	t.Cleanup(func() {
		APIKey, JWTSecretKey = prevAPIKey, prevJWT
	})
}

func TestIssueAndValidateSessionToken(t *testing.T) {
	withTestKeys(t)

	token, err := IssueSessionToken("alpha")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alpha", claims.SessionID)
	assert.Equal(t, "alpha", claims.Subject)
}

func TestValidateSessionToken_RejectsGarbage(t *testing.T) {
	withTestKeys(t)

	_, err := ValidateSessionToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateSessionToken_RejectsWrongKey(t *testing.T) {
	withTestKeys(t)

	token, err := IssueSessionToken("alpha")
	require.NoError(t, err)

	JWTSecretKey = "rotated"
	_, err = ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestIssueSessionToken_RequiresSecret(t *testing.T) {
	withTestKeys(t)
	JWTSecretKey = ""

	_, err := IssueSessionToken("alpha")
	assert.Error(t, err)
}

func newAuthApp(middleware fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/sessions/:session_id", middleware, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestSessionAuth_MasterKeyPasses(t *testing.T) {
	withTestKeys(t)
	app := newAuthApp(SessionAuth())

	req := httptest.NewRequest("GET", "/sessions/alpha", nil)
	req.Header.Set("X-API-Key", "master-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionAuth_BearerTokenBoundToSession(t *testing.T) {
	withTestKeys(t)
	app := newAuthApp(SessionAuth())

	token, err := IssueSessionToken("alpha")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/sessions/alpha", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The same token must not open another session's routes.
	req = httptest.NewRequest("GET", "/sessions/beta", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionAuth_MissingCredentialsRejected(t *testing.T) {
	withTestKeys(t)
	app := newAuthApp(SessionAuth())

	req := httptest.NewRequest("GET", "/sessions/alpha", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAPIKeyAuth(t *testing.T) {
	withTestKeys(t)
	app := newAuthApp(APIKeyAuth())

	req := httptest.NewRequest("GET", "/sessions/alpha", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/sessions/alpha", nil)
	req.Header.Set("X-API-Key", "master-key")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

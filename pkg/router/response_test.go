package router

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, handler fiber.Handler) (int, Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope Response
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &envelope))
	}
	return resp.StatusCode, envelope
}

func TestResponseSuccessWithData(t *testing.T) {
	status, envelope := doRequest(t, func(c *fiber.Ctx) error {
		return ResponseSuccessWithData(c, "all good", map[string]interface{}{"k": "v"})
	})

	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, envelope.Status)
	assert.Equal(t, fiber.StatusOK, envelope.Code)
	assert.Equal(t, "all good", envelope.Message)
	assert.Equal(t, map[string]interface{}{"k": "v"}, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestResponseError_FillsErrorField(t *testing.T) {
	status, envelope := doRequest(t, func(c *fiber.Ctx) error {
		return ResponseNotFound(c, "Session not found")
	})

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, envelope.Status)
	assert.Equal(t, "Session not found", envelope.Message)
	assert.Equal(t, "Session not found", envelope.Error)
}

func TestResponseError_EmptyMessageFallsBackToStatusText(t *testing.T) {
	_, envelope := doRequest(t, func(c *fiber.Ctx) error {
		return ResponseBadRequest(c, "")
	})

	assert.Equal(t, "Bad Request", envelope.Message)
}

func TestResponseNoContent(t *testing.T) {
	status, _ := doRequest(t, ResponseNoContent)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestParseBodyLimit(t *testing.T) {
	assert.Equal(t, 8*1024*1024, parseBodyLimit("8M"))
	assert.Equal(t, 512*1024, parseBodyLimit("512K"))
	assert.Equal(t, 1024, parseBodyLimit("1024"))
}

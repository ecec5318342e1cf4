package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSuccessCreated(t *testing.T) {
	code, out := call(t, func(c *fiber.Ctx) error {
		return SuccessCreated(c, "Transaction created successfully", fiber.Map{"id": "1"}, nil)
	})
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Transaction created successfully", out["message"])
	assert.Equal(t, map[string]interface{}{}, out["metadata"])
}

func TestError(t *testing.T) {
	code, out := call(t, func(c *fiber.Ctx) error {
		return Error(c, "Not found", fiber.StatusNotFound, map[string]interface{}{"kind": "NOT_FOUND"})
	})
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "error", out["status"])
	detail := out["error"].(map[string]interface{})
	assert.Equal(t, "Not found", detail["message"])
	assert.Equal(t, float64(404), detail["statusCode"])
	assert.Equal(t, "NOT_FOUND", detail["details"].(map[string]interface{})["kind"])
}

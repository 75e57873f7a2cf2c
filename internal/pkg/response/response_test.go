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
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestList_NilSliceIsEmptyArray(t *testing.T) {
	code, body := call(t, func(c *fiber.Ctx) error {
		var items []string
		return List(c, "Listings fetched successfully", items)
	})
	assert.Equal(t, 200, code)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.EqualValues(t, 0, body["metadata"].(map[string]interface{})["count"])
}

func TestCoded_CarriesKind(t *testing.T) {
	code, body := call(t, func(c *fiber.Ctx) error {
		return Coded(c, "Requested quantity exceeds available quantity", 422, "insufficient_availability", nil)
	})
	assert.Equal(t, 422, code)
	assert.Equal(t, "error", body["status"])
	detail := body["error"].(map[string]interface{})
	assert.Equal(t, "insufficient_availability", detail["code"])
	assert.EqualValues(t, 422, detail["statusCode"])
}

func TestError_OmitsEmptyCode(t *testing.T) {
	_, body := call(t, func(c *fiber.Ctx) error {
		return Error(c, "teapot", 418, nil)
	})
	_, ok := body["error"].(map[string]interface{})["code"]
	assert.False(t, ok)
}

package middleware_test

import (
	"net/http/httptest"
	"testing"

	"submission-composer/core/middleware/auth"
	"submission-composer/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(apiKey string) *fiber.App {
	app := fiber.New()
	app.Use(rayid.New())
	app.Use(auth.New(auth.Config{ApiKey: apiKey}))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(rayid.LocalsKey).(string))
	})
	return app
}

func TestAuth(t *testing.T) {
	app := newApp("secret")

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"Missing", "", "", 401},
		{"Wrong", "nope", "", 401},
		{"Header", "secret", "", 200},
		{"Query", "", "?api_key=secret", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(auth.HeaderName, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	resp, err := newApp("").Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRayID(t *testing.T) {
	app := newApp("")

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(rayid.HeaderName), 36)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(rayid.HeaderName, "ray-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "ray-123", resp.Header.Get(rayid.HeaderName))
}

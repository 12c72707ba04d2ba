package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/charmntreats/internal/utils"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireCustomer("secret"), func(c *fiber.Ctx) error {
		email, _ := GetCurrentEmail(c)
		return c.SendString(email)
	})
	app.Get("/admin", RequireAdmin("secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func request(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddlewareRoles(t *testing.T) {
	app := newApp()

	customer, err := utils.GenerateToken("secret", "asha@example.com", utils.RoleCustomer, time.Hour)
	require.NoError(t, err)
	admin, err := utils.GenerateToken("secret", "owner@example.com", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	forged, err := utils.GenerateToken("other", "asha@example.com", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusOK, request(t, app, "/me", customer))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/me", admin))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/admin", customer))
	assert.Equal(t, fiber.StatusNoContent, request(t, app, "/admin", admin))
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/admin", forged))
}

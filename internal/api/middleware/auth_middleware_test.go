package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/grayic/bluesky-scheduler/configs"
	"github.com/grayic/bluesky-scheduler/pkg/utils"
)

func setupApp(c cfg.Config) *fiber.App {
	app := fiber.New()
	app.Use(NewAuthMiddleware(c).AuthMiddleware())
	app.Get("/whoami", func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	conf := cfg.Config{SecretKey: "secret-key", CookieName: "bsky_session"}
	app := setupApp(conf)

	token, err := utils.GenerateToken(conf.SecretKey, "did:plc:abc123", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "bsky_session", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareMissingCookie(t *testing.T) {
	app := setupApp(cfg.Config{SecretKey: "secret-key", CookieName: "bsky_session"})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	app := setupApp(cfg.Config{SecretKey: "secret-key", CookieName: "bsky_session"})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "bsky_session", Value: "garbage"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

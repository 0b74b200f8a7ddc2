package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	cfg "github.com/grayic/bluesky-scheduler/configs"
	"github.com/grayic/bluesky-scheduler/internal/bluesky"
	"github.com/grayic/bluesky-scheduler/internal/service"
	"github.com/grayic/bluesky-scheduler/internal/transfer"
	"github.com/grayic/bluesky-scheduler/pkg/utils"
)

const sessionDuration = 24 * time.Hour

type AuthHandler struct {
	s   service.AuthService
	cfg cfg.Config
}

func NewAuthHandler(cfg cfg.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req transfer.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse login request",
		})
	}

	cred, err := h.s.Login(c.Context(), req.Handle, req.AppPassword)
	if err != nil {
		var authErr *bluesky.AuthError
		if errors.As(err, &authErr) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": authErr.Message,
			})
		}
		return serviceError(c, err)
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, cred.UserID, sessionDuration)
	if err != nil {
		slog.Error("issuing session token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Status(fiber.StatusOK).JSON(cred)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.s.Logout(c.Context(), userID); err != nil {
		return serviceError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	return c.SendStatus(fiber.StatusOK)
}

func (h *AuthHandler) GetUserInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	cred, err := h.s.UserInfo(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(cred)
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/grayic/bluesky-scheduler/internal/service"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// serviceError maps the service error taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	if service.IsValidationError(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if errors.Is(err, service.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	status := handler.readiness.Status()
	if !status.Ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"reason": status.Reason,
			"since":  status.Since.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"since":  status.Since.UTC().Format(time.RFC3339),
	})
}

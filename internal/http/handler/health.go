package handler

import (
	"context"
	"time"

	"backend-pameran/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Pameran API is running",
	})
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return apperror.DB(err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

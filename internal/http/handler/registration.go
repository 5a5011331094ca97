package handler

import (
	"backend-pameran/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /registrations. Repeating a registration is safe
// and returns the same registration_id.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.registrations.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}

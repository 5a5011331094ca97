package handler

import (
	"backend-pameran/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(res)
}

package handler

import (
	"strconv"

	"backend-pameran/internal/helper"
	"backend-pameran/internal/http/middleware"
	"backend-pameran/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.List(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tickets,
	})
}

func (h *Handler) QRToken(c *fiber.Ctx) error {
	res, err := h.tickets.Issue(middleware.CallerFrom(c), int64(c.QueryInt("exhibition_id")))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(res)
}

func (h *Handler) QRImage(c *fiber.Ctx) error {
	png, qr, err := h.tickets.IssueImage(
		middleware.CallerFrom(c),
		int64(c.QueryInt("exhibition_id")),
		c.QueryInt("size", helper.QRSizeDefault),
	)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("X-Expires-In", strconv.Itoa(qr.ExpiresIn))
	return c.Send(png)
}

// VerifyTicket answers 200, 404 or 409 with a CheckInResult body. Only an
// unusable token or a caller who may not scan is an error response.
func (h *Handler) VerifyTicket(c *fiber.Ctx) error {
	var req models.VerifyTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := helper.Validate(req); err != nil {
		return err
	}

	res, err := h.checkins.Verify(c.UserContext(), middleware.CallerFrom(c), req.Token, req.UnitID)
	if err != nil {
		return err
	}

	return c.Status(res.Status).JSON(res)
}

package handler

import (
	"backend-pameran/internal/http/middleware"
	"backend-pameran/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Routes mounts every endpoint. auth is middleware.JWTAuth bound to the
// session validator and membership resolver.
func Routes(app *fiber.App, h *Handler, auth fiber.Handler) {
	staffOnly := middleware.RoleAuth(models.RoleStaff)

	app.Get("/", h.Index)
	app.Get("/healthz", h.Healthz)

	app.Post("/registrations", h.Register)
	app.Post("/auth/login", h.Login)

	tickets := app.Group("/tickets", auth)
	tickets.Get("", h.ListTickets)
	tickets.Get("/qr-token", h.QRToken)
	tickets.Get("/qr-image", h.QRImage)
	tickets.Post("/verify", staffOnly, h.VerifyTicket)

	app.Get("/ws/checkins", auth, staffOnly, h.CheckinFeedUpgrade, websocket.New(h.CheckinFeed))
}

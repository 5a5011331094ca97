package handler

import (
	"database/sql"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/realtime"
	"backend-pameran/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type Deps struct {
	DB            *sql.DB
	Auth          *service.Auth
	Registrations *service.Registrations
	Tickets       *service.Tickets
	Checkins      *service.Checkins
	Hub           *realtime.CheckinHub
	Log           *zerolog.Logger
}

type Handler struct {
	db            *sql.DB
	auth          *service.Auth
	registrations *service.Registrations
	tickets       *service.Tickets
	checkins      *service.Checkins
	hub           *realtime.CheckinHub
	log           *zerolog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		db:            d.DB,
		auth:          d.Auth,
		registrations: d.Registrations,
		tickets:       d.Tickets,
		checkins:      d.Checkins,
		hub:           d.Hub,
		log:           d.Log,
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}

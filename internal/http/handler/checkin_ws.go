package handler

import (
	"time"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
	writeWait  = 5 * time.Second
)

// CheckinFeedUpgrade admits staff registered for the requested exhibition
// before the websocket handshake.
func (h *Handler) CheckinFeedUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	exhibitionID := int64(c.QueryInt("exhibition_id"))
	if exhibitionID <= 0 {
		return apperror.Validation("exhibition_id must be a positive integer").WithDetail("field", "exhibition_id")
	}
	if !middleware.CallerFrom(c).IsRegisteredFor(exhibitionID) {
		return apperror.AccessDenied("not registered for this exhibition")
	}

	c.Locals("exhibition_id", exhibitionID)
	return c.Next()
}

func (h *Handler) CheckinFeed(c *websocket.Conn) {
	exhibitionID, _ := c.Locals("exhibition_id").(int64)
	if !h.hub.Join(exhibitionID, c) {
		_ = c.Close()
		return
	}
	defer h.hub.Leave(exhibitionID, c)

	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// The feed is one-way; reading only detects the client going away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

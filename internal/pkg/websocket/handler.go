package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades dashboard connections
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. allowedOrigins mirrors the CORS
// configuration; "*" allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// HandleDashboard godoc
// @Summary Live dashboard feed
// @Description Upgrades to a WebSocket that streams domain events (registrations, bookings, payments, inquiries) to admins and staff
// @Tags dashboard
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} gin.H
// @Failure 403 {object} gin.H
// @Router /ws/dashboard [get]
func (h *Handler) HandleDashboard(c *gin.Context) {
	userID, ok := c.Get("userID")
	id, isInt := userID.(int64)
	if !ok || !isInt {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", id).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  id,
		channel: ChannelDashboard,
		logger:  h.logger,
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

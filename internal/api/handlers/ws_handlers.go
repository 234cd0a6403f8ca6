package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/papertrade-service/papertrade_service/internal/notifications"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// WSHandlers upgrades authenticated connections onto the notification hub
type WSHandlers struct {
	hub    *notifications.Hub
	logger *logger.Logger
}

// NewWSHandlers creates the websocket handlers
func NewWSHandlers(hub *notifications.Hub, log *logger.Logger) *WSHandlers {
	return &WSHandlers{hub: hub, logger: log}
}

// Connect handles GET /ws
func (h *WSHandlers) Connect(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		h.logger.Warnw("Websocket upgrade failed",
			"user_id", userID, "error", err)
	}
}

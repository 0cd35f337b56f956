package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/realtime"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/middleware/cors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// WSHandler upgrades squad members to the realtime snapshot stream.
type WSHandler struct {
	hub      *realtime.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new handler. The upgrade enforces the same
// origin policy as the HTTP CORS middleware.
func NewWSHandler(hub *realtime.Hub, logger *zap.Logger, origins *cors.Policy) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if origins == nil {
		origins = cors.NewPolicy(nil)
	}
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.CheckRequest,
		},
	}
}

// Subscribe upgrades the connection and streams full collection
// snapshots until the client disconnects.
func (h *WSHandler) Subscribe(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if user.GroupID == nil {
		response.Error(c, appErrors.ErrNoGroup)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	client := realtime.NewClient(user.ID, *user.GroupID, conn, h.logger)
	go client.WritePump()
	h.hub.Register(c.Request.Context(), client)
	go client.ReadPump(h.hub.Unregister)
}

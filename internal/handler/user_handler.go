package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// UserHandler wires HTTP endpoints to the user and presence services.
type UserHandler struct {
	users    *service.UserService
	presence *service.PresenceService
}

// NewUserHandler creates a new handler.
func NewUserHandler(users *service.UserService, presence *service.PresenceService) *UserHandler {
	return &UserHandler{users: users, presence: presence}
}

// Get returns a single user profile.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user.Info(), nil)
}

// ListSquad returns the caller's squad members with live presence.
func (h *UserHandler) ListSquad(c *gin.Context) {
	users, err := h.users.ListSquad(c.Request.Context(), userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// UpdateProfile updates the caller's own profile fields.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

type heartbeatRequest struct {
	CurrentActivity string `json:"current_activity"`
}

// Heartbeat marks the caller online and refreshes their presence TTL.
func (h *UserHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid heartbeat payload"))
		return
	}

	if err := h.presence.Heartbeat(c.Request.Context(), userFromContext(c), req.CurrentActivity); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Offline marks the caller offline immediately instead of waiting for
// the presence TTL to lapse.
func (h *UserHandler) Offline(c *gin.Context) {
	h.presence.Offline(c.Request.Context(), userFromContext(c))
	response.NoContent(c)
}

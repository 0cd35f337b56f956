package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// ActivityHandler serves the squad activity feed.
type ActivityHandler struct {
	service      *service.ActivityService
	defaultLimit int
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService, defaultLimit int) *ActivityHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &ActivityHandler{service: svc, defaultLimit: defaultLimit}
}

// Recent returns the newest feed entries for the caller's squad.
func (h *ActivityHandler) Recent(c *gin.Context) {
	actor := userFromContext(c)
	if actor.GroupID == nil {
		response.Error(c, appErrors.ErrNoGroup)
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.service.Recent(c.Request.Context(), *actor.GroupID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

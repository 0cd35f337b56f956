package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// EventHandler wires HTTP endpoints to the event and participation
// services.
type EventHandler struct {
	events        *service.EventService
	participation *service.ParticipationService
}

// NewEventHandler creates a new handler.
func NewEventHandler(events *service.EventService, participation *service.ParticipationService) *EventHandler {
	return &EventHandler{events: events, participation: participation}
}

// Create adds a new event to the caller's squad.
func (h *EventHandler) Create(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}

	event, err := h.events.Create(c.Request.Context(), userFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}

// List returns every event in the caller's squad. ?mine=true narrows
// the list to events the caller owns or joined.
func (h *EventHandler) List(c *gin.Context) {
	onlyMine := false
	if raw := c.Query("mine"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mine must be a boolean"))
			return
		}
		onlyMine = parsed
	}

	events, err := h.events.List(c.Request.Context(), userFromContext(c), onlyMine)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Get returns a single event.
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), userFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Update applies a merge patch: only fields present in the body are
// written.
func (h *EventHandler) Update(c *gin.Context) {
	var patch models.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event patch"))
		return
	}

	event, err := h.events.Update(c.Request.Context(), userFromContext(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete removes an event. Owner only.
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), userFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RequestJoin files the caller's join request on an event.
func (h *EventHandler) RequestJoin(c *gin.Context) {
	if err := h.participation.RequestJoin(c.Request.Context(), userFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CancelRequest withdraws the caller's pending join request.
func (h *EventHandler) CancelRequest(c *gin.Context) {
	if err := h.participation.CancelRequest(c.Request.Context(), userFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type participantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Approve promotes a pending requester to participant. Owner only.
func (h *EventHandler) Approve(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user_id is required"))
		return
	}
	if err := h.participation.Approve(c.Request.Context(), userFromContext(c), c.Param("id"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reject discards a pending join request. Owner only.
func (h *EventHandler) Reject(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user_id is required"))
		return
	}
	if err := h.participation.Reject(c.Request.Context(), userFromContext(c), c.Param("id"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Leave removes the caller from an event's participants. The owner
// cannot leave their own event.
func (h *EventHandler) Leave(c *gin.Context) {
	if err := h.participation.Leave(c.Request.Context(), userFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

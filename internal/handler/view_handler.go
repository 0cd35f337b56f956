package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/service"
	"github.com/rakazet/basecamp-kita-api/internal/view"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// ViewHandler exposes the caller's persistent calendar view state:
// selected date, view mode, the my-events filter and the event modal.
type ViewHandler struct {
	service *service.ViewService
}

// NewViewHandler creates a new handler.
func NewViewHandler(svc *service.ViewService) *ViewHandler {
	return &ViewHandler{service: svc}
}

// State returns the caller's current view joined with the events it
// renders.
func (h *ViewHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

type setViewModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// SetMode switches the caller's calendar projection.
func (h *ViewHandler) SetMode(c *gin.Context) {
	var req setViewModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid view mode payload"))
		return
	}

	snap, err := h.service.SetMode(userFromContext(c), calendar.ViewMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SelectDate moves the caller's reference date.
func (h *ViewHandler) SelectDate(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}

	snap, err := h.service.SelectDate(userFromContext(c), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// SelectDay drills into a picked day, landing on its week when coming
// from month or year view.
func (h *ViewHandler) SelectDay(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}

	snap, err := h.service.SelectDay(userFromContext(c), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

type setFilterRequest struct {
	MyEventsOnly *bool `json:"my_events_only" binding:"required"`
}

// SetFilter toggles the caller's my-events filter.
func (h *ViewHandler) SetFilter(c *gin.Context) {
	var req setFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}

	snap, err := h.service.SetMyEventsOnly(userFromContext(c), *req.MyEventsOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

type openModalRequest struct {
	EventID string `json:"event_id" binding:"required"`
	Mode    string `json:"mode"`
}

// OpenModal opens the event modal and returns it resolved with the
// event and its participants.
func (h *ViewHandler) OpenModal(c *gin.Context) {
	var req openModalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid modal payload"))
		return
	}

	detail, err := h.service.OpenEvent(c.Request.Context(), userFromContext(c), req.EventID, view.ModalMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// EditModal promotes the open modal to edit mode. Owner only.
func (h *ViewHandler) EditModal(c *gin.Context) {
	snap, err := h.service.SwitchToEdit(userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// CloseModal dismisses the open event modal.
func (h *ViewHandler) CloseModal(c *gin.Context) {
	snap, err := h.service.CloseModal(userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

func (h *ViewHandler) bindDate(c *gin.Context) (time.Time, bool) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid date payload"))
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// CalendarHandler serves render-ready calendar grids.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler creates a new handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Grid returns the grid for ?view=day|week|month|year around ?date=
// (YYYY-MM-DD, default today).
func (h *CalendarHandler) Grid(c *gin.Context) {
	mode := calendar.ViewMode(c.DefaultQuery("view", string(calendar.ViewMonth)))

	ref := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		ref = parsed
	}

	grid, err := h.service.Grid(c.Request.Context(), userFromContext(c), mode, ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, map[string]interface{}{
		"view": string(mode),
		"date": ref.Format("2006-01-02"),
	})
}

// Holidays returns the static holiday table for ?year= (default the
// current year).
func (h *CalendarHandler) Holidays(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := time.ParseInLocation("2006", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a four-digit year"))
			return
		}
		year = parsed.Year()
	}
	response.JSON(c, http.StatusOK, calendar.Holidays(year), nil)
}

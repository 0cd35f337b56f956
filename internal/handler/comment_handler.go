package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// CommentHandler serves per-event discussion threads.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// Add appends a comment to an event's thread.
func (h *CommentHandler) Add(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "text is required"))
		return
	}

	comment, err := h.service.Add(c.Request.Context(), userFromContext(c), c.Param("id"), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// List returns an event's comments oldest first.
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.service.List(c.Request.Context(), userFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

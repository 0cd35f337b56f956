package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type commentRepository interface {
	Insert(ctx context.Context, comment *models.Comment) error
	ListByEvent(ctx context.Context, eventID string) ([]models.Comment, error)
}

type commentEventRepository interface {
	FindByID(ctx context.Context, id string) (*models.CalendarEvent, error)
}

// CommentService manages the append-only comment thread of an event.
type CommentService struct {
	comments commentRepository
	events   commentEventRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(comments commentRepository, events commentEventRepository, notifier Notifier, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{comments: comments, events: events, notifier: notifier, logger: logger}
}

// Add appends a comment by a squad member.
func (s *CommentService) Add(ctx context.Context, actor *models.User, eventID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}

	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		EventID: event.ID,
		UserID:  actor.ID,
		Text:    text,
	}
	if err := s.comments.Insert(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}

	if s.notifier != nil {
		s.notifier.Notify(event.GroupID, "comments")
	}
	return comment, nil
}

// List returns an event's comments oldest first.
func (s *CommentService) List(ctx context.Context, actor *models.User, eventID string) ([]models.Comment, error) {
	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

func (s *CommentService) loadForMember(ctx context.Context, actor *models.User, eventID string) (*models.CalendarEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if actor.GroupID == nil || *actor.GroupID != event.GroupID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another squad")
	}
	return event, nil
}

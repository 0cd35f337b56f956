package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type messageRepository interface {
	Insert(ctx context.Context, message *models.Message) error
	ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.Message, error)
}

const maxMessageLength = 2000

// MessageService carries the squad chat: one shared thread per squad,
// append-only, with the sender's identity snapshotted per message.
type MessageService struct {
	repo         messageRepository
	notifier     Notifier
	logger       *zap.Logger
	historyLimit int
}

// NewMessageService constructs the service.
func NewMessageService(repo messageRepository, notifier Notifier, logger *zap.Logger, historyLimit int) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &MessageService{repo: repo, notifier: notifier, logger: logger, historyLimit: historyLimit}
}

// Send appends a message to the actor's squad chat and broadcasts the
// refreshed thread.
func (s *MessageService) Send(ctx context.Context, actor *models.User, text string) (*models.Message, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to chat")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message text is required")
	}
	if len(text) > maxMessageLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message is too long")
	}

	message := &models.Message{
		GroupID:        *actor.GroupID,
		SenderID:       actor.ID,
		SenderName:     actor.DisplayName,
		SenderPhotoURL: actor.PhotoURL,
		Text:           text,
	}
	if err := s.repo.Insert(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	if s.notifier != nil {
		s.notifier.Notify(message.GroupID, "messages")
	}
	return message, nil
}

// Recent returns the actor's squad chat, oldest first within the
// retained window.
func (s *MessageService) Recent(ctx context.Context, actor *models.User, limit int) ([]models.Message, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to chat")
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.history(ctx, *actor.GroupID, limit)
}

// History returns the chat window for a squad. The realtime snapshot
// uses this directly; group scoping is the hub's concern there.
func (s *MessageService) History(ctx context.Context, groupID string) ([]models.Message, error) {
	return s.history(ctx, groupID, s.historyLimit)
}

func (s *MessageService) history(ctx context.Context, groupID string, limit int) ([]models.Message, error) {
	messages, err := s.repo.ListRecentByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// MessageRepository persists the squad chat.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a message repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert appends a chat message.
func (r *MessageRepository) Insert(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO messages (id, group_id, sender_id, sender_name, sender_photo_url, text, created_at)
VALUES (:id, :group_id, :sender_id, :sender_name, :sender_photo_url, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListRecentByGroup returns the newest messages for a squad in
// chronological order, the shape a chat pane renders directly.
func (r *MessageRepository) ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.Message, error) {
	query := `SELECT id, group_id, sender_id, sender_name, sender_photo_url, text, created_at
FROM (
	SELECT id, group_id, sender_id, sender_name, sender_photo_url, text, created_at
	FROM messages
	WHERE group_id = $1
	ORDER BY created_at DESC
	LIMIT $2
) recent
ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, groupID, limit); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

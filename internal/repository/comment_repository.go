package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// CommentRepository persists append-only event comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs a comment repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Insert appends a comment.
func (r *CommentRepository) Insert(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO comments (id, event_id, user_id, text, created_at)
VALUES (:id, :event_id, :user_id, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByGroup returns every comment on the group's events, oldest
// first. Used for the group-wide realtime snapshot.
func (r *CommentRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Comment, error) {
	query := `SELECT c.id, c.event_id, c.user_id, c.text, c.created_at
FROM comments c
JOIN events e ON e.id = c.event_id
WHERE e.group_id = $1
ORDER BY c.created_at ASC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, groupID); err != nil {
		return nil, fmt.Errorf("list group comments: %w", err)
	}
	return comments, nil
}

// ListByEvent returns an event's comments oldest first.
func (r *CommentRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Comment, error) {
	query := `SELECT id, event_id, user_id, text, created_at FROM comments WHERE event_id = $1 ORDER BY created_at ASC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, eventID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// ActivityRepository persists the append-only activity log. Entries are
// never updated or deleted.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends one log entry.
func (r *ActivityRepository) Insert(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO activity_logs (id, type, entity_type, entity_id, entity_title, user_id, user_name, user_photo_url, group_id, timestamp, details)
VALUES (:id, :type, :entity_type, :entity_id, :entity_title, :user_id, :user_name, :user_photo_url, :group_id, :timestamp, :details)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// ListRecentByGroup returns the newest entries for a squad.
func (r *ActivityRepository) ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, type, entity_type, entity_id, entity_title, user_id, user_name, user_photo_url, group_id, timestamp, details
FROM activity_logs WHERE group_id = $1 ORDER BY timestamp DESC LIMIT $2`
	var entries []models.ActivityLog
	if err := r.db.SelectContext(ctx, &entries, query, groupID, limit); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return entries, nil
}

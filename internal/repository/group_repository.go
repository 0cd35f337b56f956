package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// GroupRepository persists squads. Member mutation uses atomic array
// operations so two users joining at once never lose an update.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a squad.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO groups (id, name, invite_code, created_by, members, created_at)
VALUES (:id, :name, :invite_code, :created_by, :members, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// FindByID fetches a squad.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, invite_code, created_by, members, created_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByInviteCode fetches a squad by its invite code.
func (r *GroupRepository) FindByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	const query = `SELECT id, name, invite_code, created_by, members, created_at FROM groups WHERE invite_code = $1 LIMIT 1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, code); err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember adds a user to the member set. Adding an existing member is
// a no-op.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	query := `UPDATE groups SET members = array_append(members, $2) WHERE id = $1 AND NOT ($2 = ANY(members))`
	if _, err := r.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from the member set.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	query := `UPDATE groups SET members = array_remove(members, $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// EventRepository persists calendar events.
//
// Participation sets are mutated only through the guarded array
// operations below. Each is a single UPDATE whose WHERE clause encodes
// the state-machine precondition, so concurrent callers cannot produce
// duplicates or a user present in both sets; a false return means the
// precondition did not hold (the call is an idempotent no-op).
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, start_time, end_time, color, tags, created_by, group_id, participants, pending_participants, meeting_link, cover_photo, is_all_day, created_at, updated_at`

// Create inserts a calendar event.
func (r *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	query := `INSERT INTO events (id, title, description, start_time, end_time, color, tags, created_by, group_id, participants, pending_participants, meeting_link, cover_photo, is_all_day, created_at, updated_at)
VALUES (:id, :title, :description, :start_time, :end_time, :color, :tags, :created_by, :group_id, :participants, :pending_participants, :meeting_link, :cover_photo, :is_all_day, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID fetches an event. Absence is reported as sql.ErrNoRows.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByGroup returns a squad's events ordered by start time.
func (r *EventRepository) ListByGroup(ctx context.Context, groupID string) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE group_id = $1 ORDER BY start_time ASC", eventColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, groupID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByGroupBetween returns a squad's events starting inside [from, to).
func (r *EventRepository) ListByGroupBetween(ctx context.Context, groupID string, from, to time.Time) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE group_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time ASC", eventColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, groupID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list events between: %w", err)
	}
	return events, nil
}

// ApplyPatch performs a field-level merge: only columns present in the
// patch are written, so concurrent non-overlapping edits never clobber
// each other.
func (r *EventRepository) ApplyPatch(ctx context.Context, id string, patch models.EventPatch) error {
	set := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.StartTime != nil {
		add("start_time", patch.StartTime.UTC())
	}
	if patch.EndTime != nil {
		add("end_time", patch.EndTime.UTC())
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Tags != nil {
		add("tags", pq.Array(*patch.Tags))
	}
	if patch.MeetingLink != nil {
		add("meeting_link", *patch.MeetingLink)
	}
	if patch.CoverPhoto != nil {
		add("cover_photo", *patch.CoverPhoto)
	}
	if patch.IsAllDay != nil {
		add("is_all_day", *patch.IsAllDay)
	}
	if len(set) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE events SET %s WHERE id = $1", strings.Join(set, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch event: %w", err)
	}
	return nil
}

// Delete removes an event and its comments.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE event_id = $1", id); err != nil {
		return fmt.Errorf("delete event comments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// AddPending records a join request. No-op when the user is already
// pending or already a participant.
func (r *EventRepository) AddPending(ctx context.Context, eventID, userID string) (bool, error) {
	query := `UPDATE events SET pending_participants = array_append(pending_participants, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(pending_participants)) AND NOT ($2 = ANY(participants))`
	return r.execGuarded(ctx, "add pending", query, eventID, userID)
}

// RemovePending cancels or rejects an open join request.
func (r *EventRepository) RemovePending(ctx context.Context, eventID, userID string) (bool, error) {
	query := `UPDATE events SET pending_participants = array_remove(pending_participants, $2), updated_at = $3
WHERE id = $1 AND $2 = ANY(pending_participants)`
	return r.execGuarded(ctx, "remove pending", query, eventID, userID)
}

// PromotePending atomically moves a user from the pending set to the
// participant set. The guard keeps the two sets disjoint and makes a
// second concurrent approval a no-op.
func (r *EventRepository) PromotePending(ctx context.Context, eventID, userID string) (bool, error) {
	query := `UPDATE events SET participants = array_append(participants, $2), pending_participants = array_remove(pending_participants, $2), updated_at = $3
WHERE id = $1 AND $2 = ANY(pending_participants) AND NOT ($2 = ANY(participants))`
	return r.execGuarded(ctx, "promote pending", query, eventID, userID)
}

// RemoveParticipant drops a joined user. The owner is pinned: the guard
// refuses to remove the event creator.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) (bool, error) {
	query := `UPDATE events SET participants = array_remove(participants, $2), updated_at = $3
WHERE id = $1 AND $2 = ANY(participants) AND created_by <> $2`
	return r.execGuarded(ctx, "remove participant", query, eventID, userID)
}

func (r *EventRepository) execGuarded(ctx context.Context, op, query, eventID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, eventID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// EventColor is the palette used by calendar events.
type EventColor string

const (
	ColorGreen  EventColor = "green"
	ColorBlue   EventColor = "blue"
	ColorRed    EventColor = "red"
	ColorPurple EventColor = "purple"
	ColorOrange EventColor = "orange"
	ColorPink   EventColor = "pink"
	ColorTeal   EventColor = "teal"
	ColorGray   EventColor = "gray"
)

// ValidColor reports whether the color belongs to the palette.
func ValidColor(c EventColor) bool {
	switch c {
	case ColorGreen, ColorBlue, ColorRed, ColorPurple, ColorOrange, ColorPink, ColorTeal, ColorGray:
		return true
	default:
		return false
	}
}

// CalendarEvent is a scheduled squad event.
//
// Two invariants hold at all times: CreatedBy is always a member of
// Participants, and Participants and PendingParticipants are disjoint.
// Both sets are mutated only through atomic array operations at the
// repository so concurrent field edits never clobber them.
type CalendarEvent struct {
	ID                  string         `db:"id" json:"id"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	StartTime           time.Time      `db:"start_time" json:"start_time"`
	EndTime             time.Time      `db:"end_time" json:"end_time"`
	Color               EventColor     `db:"color" json:"color"`
	Tags                pq.StringArray `db:"tags" json:"tags"`
	CreatedBy           string         `db:"created_by" json:"created_by"`
	GroupID             string         `db:"group_id" json:"group_id"`
	Participants        pq.StringArray `db:"participants" json:"participants"`
	PendingParticipants pq.StringArray `db:"pending_participants" json:"pending_participants"`
	MeetingLink         *string        `db:"meeting_link" json:"meeting_link,omitempty"`
	CoverPhoto          *string        `db:"cover_photo" json:"cover_photo,omitempty"`
	IsAllDay            bool           `db:"is_all_day" json:"is_all_day"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// IsOwner reports whether the user created the event.
func (e *CalendarEvent) IsOwner(userID string) bool {
	return e.CreatedBy == userID
}

// HasParticipant reports whether the user is a confirmed participant.
func (e *CalendarEvent) HasParticipant(userID string) bool {
	return containsID(e.Participants, userID)
}

// HasPending reports whether the user has an open join request.
func (e *CalendarEvent) HasPending(userID string) bool {
	return containsID(e.PendingParticipants, userID)
}

func containsID(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// EventPatch carries a merge-patch update: only non-nil fields are
// written. Participation sets are intentionally absent; they move only
// through the participation engine.
type EventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	MeetingLink *string    `json:"meeting_link,omitempty"`
	CoverPhoto  *string    `json:"cover_photo,omitempty"`
	IsAllDay    *bool      `json:"is_all_day,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.StartTime == nil &&
		p.EndTime == nil && p.Color == nil && p.Tags == nil &&
		p.MeetingLink == nil && p.CoverPhoto == nil && p.IsAllDay == nil
}

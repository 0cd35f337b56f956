package models

import "time"

// ActivityType enumerates logged transitions.
type ActivityType string

const (
	ActivityCreate ActivityType = "create"
	ActivityUpdate ActivityType = "update"
	ActivityDelete ActivityType = "delete"
	ActivityJoin   ActivityType = "join"
	ActivityLeave  ActivityType = "leave"
)

// ActivityLog is an append-only record of a committed event transition.
// Actor identity fields are a snapshot taken at the time of the action,
// not a live reference to the user document.
type ActivityLog struct {
	ID           string       `db:"id" json:"id"`
	Type         ActivityType `db:"type" json:"type"`
	EntityType   string       `db:"entity_type" json:"entity_type"`
	EntityID     string       `db:"entity_id" json:"entity_id"`
	EntityTitle  string       `db:"entity_title" json:"entity_title"`
	UserID       string       `db:"user_id" json:"user_id"`
	UserName     string       `db:"user_name" json:"user_name"`
	UserPhotoURL *string      `db:"user_photo_url" json:"user_photo_url,omitempty"`
	GroupID      string       `db:"group_id" json:"group_id"`
	Timestamp    time.Time    `db:"timestamp" json:"timestamp"`
	Details      *string      `db:"details" json:"details,omitempty"`
}

package models

import "time"

// Message is one entry in the squad chat. Sender identity is
// snapshotted at send time so renaming a profile does not rewrite
// history.
type Message struct {
	ID             string    `db:"id" json:"id"`
	GroupID        string    `db:"group_id" json:"group_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	SenderName     string    `db:"sender_name" json:"sender_name"`
	SenderPhotoURL *string   `db:"sender_photo_url" json:"sender_photo_url,omitempty"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

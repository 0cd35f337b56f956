package models

import "time"

// User represents an application user stored in the users table.
// Presence fields (IsOnline, LastSeen) are maintained by the presence
// service; GroupID is set by joining or creating a squad and cleared on
// leave.
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	DisplayName     string     `db:"display_name" json:"display_name"`
	PhotoURL        *string    `db:"photo_url" json:"photo_url,omitempty"`
	IsOnline        bool       `db:"is_online" json:"is_online"`
	LastSeen        *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	CurrentActivity string     `db:"current_activity" json:"current_activity"`
	GamingRole      *string    `db:"gaming_role" json:"gaming_role,omitempty"`
	FavoriteGame    *string    `db:"favorite_game" json:"favorite_game,omitempty"`
	GroupID         *string    `db:"group_id" json:"group_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection embedded in auth responses.
type UserInfo struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	GroupID     *string `json:"group_id,omitempty"`
}

// Info converts a user into its public projection.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		GroupID:     u.GroupID,
	}
}

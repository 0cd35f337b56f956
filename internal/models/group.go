package models

import (
	"time"

	"github.com/lib/pq"
)

// Group is a squad: a set of users who share visibility into each
// other's events. Members is a set of user ids; the creator is always a
// member.
type Group struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	InviteCode string         `db:"invite_code" json:"invite_code"`
	CreatedBy  string         `db:"created_by" json:"created_by"`
	Members    pq.StringArray `db:"members" json:"members"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// HasMember reports whether the user belongs to the squad.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

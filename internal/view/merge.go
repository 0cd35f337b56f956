package view

import (
	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// MemberView joins a squad member with their live presence flag for
// rendering.
type MemberView struct {
	models.UserInfo
	Online bool `json:"online"`
}

// FilterMyEvents keeps events the viewer participates in or owns. It
// is a pure predicate over the live set, not a separate fetch.
func FilterMyEvents(events []models.CalendarEvent, viewerID string) []models.CalendarEvent {
	filtered := make([]models.CalendarEvent, 0, len(events))
	for _, event := range events {
		if event.IsOwner(viewerID) || event.HasParticipant(viewerID) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// MergeMembers overlays presence flags onto the member list. Members
// missing from the presence snapshot read as offline.
func MergeMembers(members []models.User, presence map[string]bool) []MemberView {
	views := make([]MemberView, 0, len(members))
	for i := range members {
		views = append(views, MemberView{
			UserInfo: members[i].Info(),
			Online:   presence[members[i].ID],
		})
	}
	return views
}

// ResolveParticipants maps participant IDs to member views. The event
// and user streams have no ordering guarantee between them, so an ID
// with no matching user yet gets a placeholder instead of being
// dropped or failing the render.
func ResolveParticipants(ids []string, members []models.User, presence map[string]bool) []MemberView {
	byID := make(map[string]models.User, len(members))
	for i := range members {
		byID[members[i].ID] = members[i]
	}
	views := make([]MemberView, 0, len(ids))
	for _, id := range ids {
		if member, ok := byID[id]; ok {
			views = append(views, MemberView{UserInfo: member.Info(), Online: presence[id]})
			continue
		}
		views = append(views, MemberView{UserInfo: models.UserInfo{ID: id, DisplayName: "Unknown member"}})
	}
	return views
}

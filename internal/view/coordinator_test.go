package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

func squadEvent(id, owner string, participants ...string) models.CalendarEvent {
	return models.CalendarEvent{
		ID:           id,
		CreatedBy:    owner,
		Participants: append([]string{}, participants...),
	}
}

func TestCoordinatorStartsOnTodayMonthView(t *testing.T) {
	now := time.Date(2026, 6, 5, 20, 30, 0, 0, time.UTC)
	c := NewCoordinator("A", now)

	snap := c.Snapshot()
	assert.Equal(t, calendar.ViewMonth, snap.ViewMode)
	assert.Equal(t, time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC), snap.SelectedDate)
	assert.False(t, snap.MyEventsOnly)
	assert.Nil(t, snap.Modal)
}

func TestCoordinatorSetViewModeRejectsUnknown(t *testing.T) {
	c := NewCoordinator("A", time.Now())

	require.NoError(t, c.SetViewMode(calendar.ViewDay))
	assert.Equal(t, calendar.ViewDay, c.Snapshot().ViewMode)

	err := c.SetViewMode(calendar.ViewMode("fortnight"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, calendar.ViewDay, c.Snapshot().ViewMode, "invalid mode leaves state untouched")
}

func TestCoordinatorSelectDayDrillsIntoWeek(t *testing.T) {
	c := NewCoordinator("A", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	picked := time.Date(2026, 6, 17, 14, 0, 0, 0, time.UTC)
	c.SelectDay(picked)

	snap := c.Snapshot()
	assert.Equal(t, calendar.ViewWeek, snap.ViewMode, "month view drills into the week")
	assert.Equal(t, time.Date(2026, 6, 17, 0, 0, 0, 0, time.UTC), snap.SelectedDate)

	// Already in week view: another pick only moves the date.
	c.SelectDay(picked.AddDate(0, 0, 1))
	snap = c.Snapshot()
	assert.Equal(t, calendar.ViewWeek, snap.ViewMode)
	assert.Equal(t, time.Date(2026, 6, 18, 0, 0, 0, 0, time.UTC), snap.SelectedDate)
}

func TestCoordinatorSubscribeAndUnsubscribe(t *testing.T) {
	c := NewCoordinator("A", time.Now())

	var got []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) { got = append(got, s) })

	c.SetMyEventsOnly(true)
	require.Len(t, got, 1)
	assert.True(t, got[0].MyEventsOnly)

	unsubscribe()
	unsubscribe() // second call is a no-op
	c.SetMyEventsOnly(false)
	assert.Len(t, got, 1, "no notifications after unsubscribe")
}

func TestCoordinatorOwnerOpensInEditMode(t *testing.T) {
	c := NewCoordinator("A", time.Now())
	event := squadEvent("mabar", "A", "A", "B")

	modal := c.OpenEvent(&event, ModalEdit)
	assert.Equal(t, ModalEdit, modal.Mode)
	assert.True(t, modal.IsOwner)
	assert.Equal(t, "mabar", modal.EventID)
}

func TestCoordinatorNonOwnerForcedIntoViewMode(t *testing.T) {
	c := NewCoordinator("B", time.Now())
	event := squadEvent("mabar", "A", "A", "B")

	modal := c.OpenEvent(&event, ModalEdit)
	assert.Equal(t, ModalView, modal.Mode, "edit request downgraded for non-owner")
	assert.False(t, modal.IsOwner)

	err := c.SwitchToEdit()
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, ModalView, c.Snapshot().Modal.Mode)
}

func TestCoordinatorSwitchToEdit(t *testing.T) {
	c := NewCoordinator("A", time.Now())

	err := c.SwitchToEdit()
	require.Error(t, err, "nothing open yet")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	event := squadEvent("mabar", "A")
	c.OpenEvent(&event, ModalView)
	require.NoError(t, c.SwitchToEdit())
	assert.Equal(t, ModalEdit, c.Snapshot().Modal.Mode)
}

func TestCoordinatorCloseModal(t *testing.T) {
	c := NewCoordinator("A", time.Now())
	event := squadEvent("mabar", "A")
	c.OpenEvent(&event, ModalView)

	var notifications int
	defer c.Subscribe(func(Snapshot) { notifications++ })()

	c.CloseModal()
	assert.Nil(t, c.Snapshot().Modal)
	c.CloseModal()
	assert.Equal(t, 1, notifications, "closing an already closed modal is silent")
}

func TestCoordinatorReconcileDropsVanishedEvent(t *testing.T) {
	c := NewCoordinator("B", time.Now())
	event := squadEvent("mabar", "A")
	c.OpenEvent(&event, ModalView)

	// Event still present: modal survives.
	c.Reconcile([]models.CalendarEvent{squadEvent("other", "A"), event})
	require.NotNil(t, c.Snapshot().Modal)

	// Event deleted out from under the viewer: modal is dismissed.
	c.Reconcile([]models.CalendarEvent{squadEvent("other", "A")})
	assert.Nil(t, c.Snapshot().Modal)
}

func TestFilterMyEvents(t *testing.T) {
	events := []models.CalendarEvent{
		squadEvent("owned", "B"),
		squadEvent("joined", "A", "A", "B"),
		squadEvent("theirs", "A", "A", "C"),
	}

	mine := FilterMyEvents(events, "B")
	require.Len(t, mine, 2)
	assert.Equal(t, "owned", mine[0].ID)
	assert.Equal(t, "joined", mine[1].ID)

	assert.Empty(t, FilterMyEvents(events, "Z"))
}

func TestMergeMembersOverlaysPresence(t *testing.T) {
	members := []models.User{
		{ID: "A", DisplayName: "Andi"},
		{ID: "B", DisplayName: "Bimo"},
	}

	views := MergeMembers(members, map[string]bool{"A": true})
	require.Len(t, views, 2)
	assert.True(t, views[0].Online)
	assert.False(t, views[1].Online, "missing from presence snapshot reads offline")
	assert.Equal(t, "Bimo", views[1].DisplayName)
}

func TestResolveParticipantsToleratesUnknownIDs(t *testing.T) {
	members := []models.User{{ID: "A", DisplayName: "Andi"}}

	views := ResolveParticipants([]string{"A", "ghost"}, members, map[string]bool{"A": true})
	require.Len(t, views, 2)
	assert.Equal(t, "Andi", views[0].DisplayName)
	assert.True(t, views[0].Online)
	assert.Equal(t, "ghost", views[1].ID)
	assert.Equal(t, "Unknown member", views[1].DisplayName)
	assert.False(t, views[1].Online)
}

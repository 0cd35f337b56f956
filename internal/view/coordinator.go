// Package view owns the transient per-session UI state: the selected
// date, the active calendar view mode, and the event modal. It is a
// plain state machine with explicit subscriptions, so any surface
// (websocket payload shaper, HTTP view endpoint, tests) can observe it
// without ambient globals.
package view

import (
	"sync"
	"time"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

// ModalMode says whether the open event modal is editable.
type ModalMode string

const (
	ModalView ModalMode = "view"
	ModalEdit ModalMode = "edit"
)

// Modal describes the event modal when one is open.
type Modal struct {
	EventID  string    `json:"event_id"`
	Mode     ModalMode `json:"mode"`
	IsOwner  bool      `json:"is_owner"`
	OpenedAt time.Time `json:"opened_at"`
}

// Snapshot is the coordinator's full visible state.
type Snapshot struct {
	SelectedDate time.Time         `json:"selected_date"`
	ViewMode     calendar.ViewMode `json:"view_mode"`
	MyEventsOnly bool              `json:"my_events_only"`
	Modal        *Modal            `json:"modal,omitempty"`
}

// Coordinator tracks one viewer's UI state. All mutations notify every
// subscriber with a fresh snapshot; callbacks run synchronously on the
// mutating goroutine, so they must not call back into the coordinator.
type Coordinator struct {
	mu           sync.Mutex
	viewerID     string
	selectedDate time.Time
	viewMode     calendar.ViewMode
	myEventsOnly bool
	modal        *Modal

	nextSub     int
	subscribers map[int]func(Snapshot)
}

// NewCoordinator starts a coordinator on today's month view.
func NewCoordinator(viewerID string, now time.Time) *Coordinator {
	return &Coordinator{
		viewerID:     viewerID,
		selectedDate: calendar.StartOfDay(now),
		viewMode:     calendar.ViewMonth,
		subscribers:  make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers a callback invoked with a snapshot after every
// state change. The returned handle removes the subscription; calling
// it more than once is harmless.
func (c *Coordinator) Subscribe(cb func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = cb
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// SetViewMode switches the active calendar projection.
func (c *Coordinator) SetViewMode(mode calendar.ViewMode) error {
	if !calendar.ValidViewMode(mode) {
		return appErrors.Clone(appErrors.ErrValidation, "view must be one of day, week, month, year")
	}
	c.mu.Lock()
	c.viewMode = mode
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// SelectDate moves the reference date without changing view mode.
func (c *Coordinator) SelectDate(date time.Time) {
	c.mu.Lock()
	c.selectedDate = calendar.StartOfDay(date)
	c.notifyLocked()
	c.mu.Unlock()
}

// SelectDay drills from month or year view into the week containing
// the picked day. Selecting a day from week or day view just moves the
// reference date.
func (c *Coordinator) SelectDay(date time.Time) {
	c.mu.Lock()
	c.selectedDate = calendar.StartOfDay(date)
	if c.viewMode == calendar.ViewMonth || c.viewMode == calendar.ViewYear {
		c.viewMode = calendar.ViewWeek
	}
	c.notifyLocked()
	c.mu.Unlock()
}

// SetMyEventsOnly toggles the "my events" filter flag.
func (c *Coordinator) SetMyEventsOnly(on bool) {
	c.mu.Lock()
	c.myEventsOnly = on
	c.notifyLocked()
	c.mu.Unlock()
}

// OpenEvent opens the modal for the event. Edit mode is granted only
// to the owner; everyone else is forced into read-only view, whatever
// mode was requested.
func (c *Coordinator) OpenEvent(event *models.CalendarEvent, requested ModalMode) Modal {
	isOwner := event.IsOwner(c.viewerID)
	mode := requested
	if mode != ModalEdit {
		mode = ModalView
	}
	if !isOwner {
		mode = ModalView
	}
	modal := Modal{EventID: event.ID, Mode: mode, IsOwner: isOwner, OpenedAt: time.Now()}

	c.mu.Lock()
	c.modal = &modal
	c.notifyLocked()
	c.mu.Unlock()
	return modal
}

// SwitchToEdit promotes an open read-only modal to edit mode. Only the
// owner may do this.
func (c *Coordinator) SwitchToEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal == nil {
		return appErrors.Clone(appErrors.ErrValidation, "no event is open")
	}
	if !c.modal.IsOwner {
		return appErrors.Clone(appErrors.ErrForbidden, "only the event owner can edit")
	}
	c.modal.Mode = ModalEdit
	c.notifyLocked()
	return nil
}

// CloseModal dismisses the event modal if one is open.
func (c *Coordinator) CloseModal() {
	c.mu.Lock()
	if c.modal != nil {
		c.modal = nil
		c.notifyLocked()
	}
	c.mu.Unlock()
}

// Reconcile drops the modal when its event no longer exists in the
// authoritative snapshot, e.g. the owner deleted it while the modal
// was open.
func (c *Coordinator) Reconcile(events []models.CalendarEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal == nil {
		return
	}
	for i := range events {
		if events[i].ID == c.modal.EventID {
			return
		}
	}
	c.modal = nil
	c.notifyLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		SelectedDate: c.selectedDate,
		ViewMode:     c.viewMode,
		MyEventsOnly: c.myEventsOnly,
	}
	if c.modal != nil {
		modal := *c.modal
		snap.Modal = &modal
	}
	return snap
}

func (c *Coordinator) notifyLocked() {
	snap := c.snapshotLocked()
	for _, cb := range c.subscribers {
		cb(snap)
	}
}

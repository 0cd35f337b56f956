package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/models"
	"github.com/rakazet/basecamp-kita-api/internal/view"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

// ViewState is a coordinator snapshot joined with the events it would
// render, already narrowed by the "my events" filter when it is on.
type ViewState struct {
	view.Snapshot
	Events []models.CalendarEvent `json:"events"`
}

// ModalDetail is the open event modal plus everything needed to render
// it: the event itself and its participants with presence flags.
type ModalDetail struct {
	Modal        view.Modal            `json:"modal"`
	Event        *models.CalendarEvent `json:"event"`
	Participants []view.MemberView     `json:"participants"`
	Pending      []view.MemberView     `json:"pending_participants"`
}

// ViewService keeps one view coordinator per signed-in member, so the
// selected date, view mode and modal survive across requests the way
// they survive across renders in a long-lived client. Sessions are
// created lazily and reset when the member switches squads.
type ViewService struct {
	events   eventRepository
	users    reportUserRepository
	presence presenceReader
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*viewSession
}

type viewSession struct {
	coordinator *view.Coordinator
	groupID     string
}

// NewViewService constructs the service.
func NewViewService(events eventRepository, users reportUserRepository, presence presenceReader, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		events:   events,
		users:    users,
		presence: presence,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*viewSession),
	}
}

// State returns the actor's current view state. The open modal is
// reconciled against the live event set first, so a modal whose event
// was deleted by someone else reads as closed.
func (s *ViewService) State(ctx context.Context, actor *models.User) (*ViewState, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)

	events, err := s.events.ListByGroup(ctx, *actor.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	coordinator.Reconcile(events)

	snap := coordinator.Snapshot()
	if snap.MyEventsOnly {
		events = view.FilterMyEvents(events, actor.ID)
	}
	return &ViewState{Snapshot: snap, Events: events}, nil
}

// SetMode switches the actor's calendar projection.
func (s *ViewService) SetMode(actor *models.User, mode calendar.ViewMode) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	if err := coordinator.SetViewMode(mode); err != nil {
		return nil, err
	}
	snap := coordinator.Snapshot()
	return &snap, nil
}

// SelectDate moves the actor's reference date without changing mode.
func (s *ViewService) SelectDate(actor *models.User, date time.Time) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	coordinator.SelectDate(date)
	snap := coordinator.Snapshot()
	return &snap, nil
}

// SelectDay drills into a day: from month or year view it lands on the
// week containing the day, otherwise it just moves the reference date.
func (s *ViewService) SelectDay(actor *models.User, date time.Time) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	coordinator.SelectDay(date)
	snap := coordinator.Snapshot()
	return &snap, nil
}

// SetMyEventsOnly toggles the actor's "my events" filter.
func (s *ViewService) SetMyEventsOnly(actor *models.User, on bool) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	coordinator.SetMyEventsOnly(on)
	snap := coordinator.Snapshot()
	return &snap, nil
}

// OpenEvent opens the modal on an event in the actor's squad and
// returns it fully resolved: the event plus its participant lists with
// presence flags. Requesting edit mode on someone else's event quietly
// degrades to read-only.
func (s *ViewService) OpenEvent(ctx context.Context, actor *models.User, eventID string, mode view.ModalMode) (*ModalDetail, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.GroupID != *actor.GroupID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another squad")
	}

	coordinator := s.session(actor)
	modal := coordinator.OpenEvent(event, mode)

	members, presence := s.roster(ctx, event.GroupID)
	return &ModalDetail{
		Modal:        modal,
		Event:        event,
		Participants: view.ResolveParticipants(event.Participants, members, presence),
		Pending:      view.ResolveParticipants(event.PendingParticipants, members, presence),
	}, nil
}

// SwitchToEdit promotes the actor's open modal to edit mode. Owner
// only.
func (s *ViewService) SwitchToEdit(actor *models.User) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	if err := coordinator.SwitchToEdit(); err != nil {
		return nil, err
	}
	snap := coordinator.Snapshot()
	return &snap, nil
}

// CloseModal dismisses the actor's event modal.
func (s *ViewService) CloseModal(actor *models.User) (*view.Snapshot, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join a squad to browse the calendar")
	}
	coordinator := s.session(actor)
	coordinator.CloseModal()
	snap := coordinator.Snapshot()
	return &snap, nil
}

// session returns the actor's coordinator, creating one on first use.
// Switching squads resets the session: the old date, filter and modal
// belong to the previous squad's calendar.
func (s *ViewService) session(actor *models.User) *view.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[actor.ID]
	if ok && existing.groupID == *actor.GroupID {
		return existing.coordinator
	}
	coordinator := view.NewCoordinator(actor.ID, s.now())
	s.sessions[actor.ID] = &viewSession{coordinator: coordinator, groupID: *actor.GroupID}
	return coordinator
}

// roster loads the squad members with presence flags for participant
// resolution. Either feed failing degrades to placeholders or offline
// flags rather than failing the modal.
func (s *ViewService) roster(ctx context.Context, groupID string) ([]models.User, map[string]bool) {
	members, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Warn("member roster unavailable for modal", zap.String("group_id", groupID), zap.Error(err))
		return nil, nil
	}
	ids := make([]string, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ID)
	}
	presence, err := s.presence.Snapshot(ctx, ids)
	if err != nil {
		s.logger.Warn("presence unavailable for modal", zap.String("group_id", groupID), zap.Error(err))
		presence = nil
	}
	return members, presence
}

package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

// ParticipationState is the per-(event, user) membership state.
type ParticipationState int

const (
	StateNone ParticipationState = iota
	StatePending
	StateJoined
)

// ParticipationAction is a requested transition.
type ParticipationAction int

const (
	ActionRequestJoin ParticipationAction = iota
	ActionCancelRequest
	ActionApprove
	ActionReject
	ActionLeave
)

// StateOf derives the membership state of a user for an event. The
// owner is pinned to StateJoined.
func StateOf(event *models.CalendarEvent, userID string) ParticipationState {
	switch {
	case event.IsOwner(userID), event.HasParticipant(userID):
		return StateJoined
	case event.HasPending(userID):
		return StatePending
	default:
		return StateNone
	}
}

// Transition is the pure state machine: it returns the next state and
// whether the action performs a real transition. Actions that do not
// apply to the current state are idempotent no-ops (ok == false, err ==
// nil), except an owner trying to leave their own event, which is
// refused outright.
func Transition(current ParticipationState, action ParticipationAction, subjectIsOwner bool) (ParticipationState, bool, error) {
	if subjectIsOwner {
		if action == ActionLeave {
			return StateJoined, false, appErrors.ErrOwnerPinned
		}
		// The owner's id never moves through pending.
		return StateJoined, false, nil
	}

	switch action {
	case ActionRequestJoin:
		if current == StateNone {
			return StatePending, true, nil
		}
	case ActionCancelRequest, ActionReject:
		if current == StatePending {
			return StateNone, true, nil
		}
	case ActionApprove:
		if current == StatePending {
			return StateJoined, true, nil
		}
	case ActionLeave:
		if current == StateJoined {
			return StateNone, true, nil
		}
	}
	return current, false, nil
}

type participationEventRepository interface {
	FindByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	AddPending(ctx context.Context, eventID, userID string) (bool, error)
	RemovePending(ctx context.Context, eventID, userID string) (bool, error)
	PromotePending(ctx context.Context, eventID, userID string) (bool, error)
	RemoveParticipant(ctx context.Context, eventID, userID string) (bool, error)
}

type participationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type activityRecorder interface {
	Record(actor *models.User, activityType models.ActivityType, entityID, entityTitle string, details *string)
}

// Notifier fans out a committed mutation to realtime subscribers.
type Notifier interface {
	Notify(groupID string, collection string)
}

// ParticipationService applies join-request transitions to one event.
// It resolves the requested action through the pure Transition table,
// then commits it with a guarded atomic array update, so concurrent
// duplicate actions collapse into no-ops at either stage.
type ParticipationService struct {
	events   participationEventRepository
	users    participationUserRepository
	activity activityRecorder
	notifier Notifier
	logger   *zap.Logger
}

// NewParticipationService constructs the service.
func NewParticipationService(events participationEventRepository, users participationUserRepository, activity activityRecorder, notifier Notifier, logger *zap.Logger) *ParticipationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationService{events: events, users: users, activity: activity, notifier: notifier, logger: logger}
}

// RequestJoin moves the actor from NONE to PENDING. Requesting while
// already pending or joined is a no-op. No activity is logged until the
// request is approved.
func (s *ParticipationService) RequestJoin(ctx context.Context, actor *models.User, eventID string) error {
	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return err
	}

	if _, proceed, err := Transition(StateOf(event, actor.ID), ActionRequestJoin, event.IsOwner(actor.ID)); err != nil || !proceed {
		return err
	}

	if _, err := s.events.AddPending(ctx, eventID, actor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request join")
	}
	s.notify(event.GroupID)
	return nil
}

// CancelRequest withdraws the actor's own pending request.
func (s *ParticipationService) CancelRequest(ctx context.Context, actor *models.User, eventID string) error {
	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return err
	}

	if _, proceed, err := Transition(StateOf(event, actor.ID), ActionCancelRequest, event.IsOwner(actor.ID)); err != nil || !proceed {
		return err
	}

	if _, err := s.events.RemovePending(ctx, eventID, actor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel request")
	}
	s.notify(event.GroupID)
	return nil
}

// Approve promotes a pending user to participant. Owner only. A second
// approval of the same user is a no-op: the guarded promote fails its
// precondition and nothing is logged twice.
func (s *ParticipationService) Approve(ctx context.Context, actor *models.User, eventID, userID string) error {
	event, err := s.loadForOwner(ctx, actor, eventID)
	if err != nil {
		return err
	}

	if _, proceed, err := Transition(StateOf(event, userID), ActionApprove, event.IsOwner(userID)); err != nil || !proceed {
		return err
	}

	promoted, err := s.events.PromotePending(ctx, eventID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve join request")
	}
	if promoted {
		s.recordFor(ctx, userID, models.ActivityJoin, event)
		s.notify(event.GroupID)
	}
	return nil
}

// Reject discards a pending request. Owner only, no log entry.
func (s *ParticipationService) Reject(ctx context.Context, actor *models.User, eventID, userID string) error {
	event, err := s.loadForOwner(ctx, actor, eventID)
	if err != nil {
		return err
	}

	if _, proceed, err := Transition(StateOf(event, userID), ActionReject, event.IsOwner(userID)); err != nil || !proceed {
		return err
	}

	if _, err := s.events.RemovePending(ctx, eventID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject join request")
	}
	s.notify(event.GroupID)
	return nil
}

// Leave removes the actor from the participant set. The owner cannot
// leave their own event.
func (s *ParticipationService) Leave(ctx context.Context, actor *models.User, eventID string) error {
	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return err
	}

	if _, proceed, err := Transition(StateOf(event, actor.ID), ActionLeave, event.IsOwner(actor.ID)); err != nil || !proceed {
		return err
	}

	removed, err := s.events.RemoveParticipant(ctx, eventID, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave event")
	}
	if removed {
		s.activity.Record(actor, models.ActivityLeave, event.ID, event.Title, nil)
		s.notify(event.GroupID)
	}
	return nil
}

func (s *ParticipationService) loadForMember(ctx context.Context, actor *models.User, eventID string) (*models.CalendarEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if actor.GroupID == nil || *actor.GroupID != event.GroupID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another squad")
	}
	return event, nil
}

func (s *ParticipationService) loadForOwner(ctx context.Context, actor *models.User, eventID string) (*models.CalendarEvent, error) {
	event, err := s.loadForMember(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwner(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the event owner may manage join requests")
	}
	return event, nil
}

// recordFor logs an entry on behalf of the affected user (not the
// acting owner), snapshotting that user's identity.
func (s *ParticipationService) recordFor(ctx context.Context, userID string, activityType models.ActivityType, event *models.CalendarEvent) {
	subject, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("activity snapshot lookup failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if subject.GroupID == nil {
		group := event.GroupID
		subject.GroupID = &group
	}
	s.activity.Record(subject, activityType, event.ID, event.Title, nil)
}

func (s *ParticipationService) notify(groupID string) {
	if s.notifier != nil {
		s.notifier.Notify(groupID, "events")
	}
}

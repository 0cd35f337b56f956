package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	"github.com/rakazet/basecamp-kita-api/internal/view"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	FindByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.CalendarEvent, error)
	ApplyPatch(ctx context.Context, id string, patch models.EventPatch) error
	Delete(ctx context.Context, id string) error
}

// EventService manages event lifecycle: create, merge-patch update and
// owner-gated delete. Participation sets are owned by the
// ParticipationService and never move through here.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	activity  activityRecorder
	notifier  Notifier
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, validate *validator.Validate, activity activityRecorder, notifier Notifier, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, validator: validate, activity: activity, notifier: notifier, logger: logger}
}

// CreateEventRequest describes the create payload.
type CreateEventRequest struct {
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
	Color        string    `json:"color" validate:"required"`
	Tags         []string  `json:"tags"`
	Participants []string  `json:"participants"`
	MeetingLink  *string   `json:"meeting_link"`
	CoverPhoto   *string   `json:"cover_photo"`
	IsAllDay     bool      `json:"is_all_day"`
}

// Create registers a new event owned by the actor. The actor must
// belong to a squad; the event is scoped to it and the owner is always
// seeded into the participant set.
func (s *EventService) Create(ctx context.Context, actor *models.User, req CreateEventRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join or create a squad before scheduling events")
	}
	if !models.ValidColor(models.EventColor(req.Color)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event color")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	participants := []string{actor.ID}
	for _, id := range req.Participants {
		if id != actor.ID {
			participants = append(participants, id)
		}
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	event := &models.CalendarEvent{
		Title:               req.Title,
		Description:         req.Description,
		StartTime:           req.StartTime.UTC(),
		EndTime:             req.EndTime.UTC(),
		Color:               models.EventColor(req.Color),
		Tags:                tags,
		CreatedBy:           actor.ID,
		GroupID:             *actor.GroupID,
		Participants:        participants,
		PendingParticipants: []string{},
		MeetingLink:         req.MeetingLink,
		CoverPhoto:          req.CoverPhoto,
		IsAllDay:            req.IsAllDay,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.activity.Record(actor, models.ActivityCreate, event.ID, event.Title, nil)
	s.notify(event.GroupID)
	return event, nil
}

// Get returns one event, restricted to the actor's squad.
func (s *EventService) Get(ctx context.Context, actor *models.User, id string) (*models.CalendarEvent, error) {
	return s.loadForMember(ctx, actor, id)
}

// List returns the actor's squad events ordered by start time. With
// onlyMine set it keeps just the events the actor owns or joined.
func (s *EventService) List(ctx context.Context, actor *models.User, onlyMine bool) ([]models.CalendarEvent, error) {
	if actor.GroupID == nil {
		return []models.CalendarEvent{}, nil
	}
	events, err := s.repo.ListByGroup(ctx, *actor.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if onlyMine {
		events = view.FilterMyEvents(events, actor.ID)
	}
	return events, nil
}

// Update applies a merge-patch: only fields present in the patch are
// written, leaving concurrent edits of other fields untouched. Owner
// only.
func (s *EventService) Update(ctx context.Context, actor *models.User, id string, patch models.EventPatch) (*models.CalendarEvent, error) {
	event, err := s.loadForMember(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOwner(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the event owner may edit it")
	}
	if patch.Color != nil && !models.ValidColor(models.EventColor(*patch.Color)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event color")
	}
	if err := validatePatchTimes(event, patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return event, nil
	}

	if err := s.repo.ApplyPatch(ctx, id, patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload event")
	}

	details := patchDetails(patch)
	s.activity.Record(actor, models.ActivityUpdate, updated.ID, updated.Title, &details)
	s.notify(updated.GroupID)
	return updated, nil
}

// Delete removes an event. Owner only.
func (s *EventService) Delete(ctx context.Context, actor *models.User, id string) error {
	event, err := s.loadForMember(ctx, actor, id)
	if err != nil {
		return err
	}
	if !event.IsOwner(actor.ID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the event owner may delete it")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.activity.Record(actor, models.ActivityDelete, event.ID, event.Title, nil)
	s.notify(event.GroupID)
	return nil
}

func (s *EventService) loadForMember(ctx context.Context, actor *models.User, id string) (*models.CalendarEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
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

func (s *EventService) notify(groupID string) {
	if s.notifier != nil {
		s.notifier.Notify(groupID, "events")
	}
}

func validatePatchTimes(event *models.CalendarEvent, patch models.EventPatch) error {
	start := event.StartTime
	end := event.EndTime
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return nil
}

func patchDetails(patch models.EventPatch) string {
	var changed []string
	if patch.Title != nil {
		changed = append(changed, "title")
	}
	if patch.Description != nil {
		changed = append(changed, "description")
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		changed = append(changed, "time")
	}
	if patch.Color != nil {
		changed = append(changed, "color")
	}
	if patch.Tags != nil {
		changed = append(changed, "tags")
	}
	if patch.MeetingLink != nil {
		changed = append(changed, "meeting link")
	}
	if patch.CoverPhoto != nil {
		changed = append(changed, "cover photo")
	}
	if patch.IsAllDay != nil {
		changed = append(changed, "all-day flag")
	}
	return "changed " + strings.Join(changed, ", ")
}

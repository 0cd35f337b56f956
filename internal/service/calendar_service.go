package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type calendarEventRepository interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.CalendarEvent, error)
	ListByGroupBetween(ctx context.Context, groupID string, from, to time.Time) ([]models.CalendarEvent, error)
}

// CalendarService glues the squad's live event set to the pure grid
// projections. One service serves every view mode; the projection to
// run is a parameter, not a separate code path per screen.
type CalendarService struct {
	events       calendarEventRepository
	logger       *zap.Logger
	weekStart    time.Weekday
	previewLimit int
}

// NewCalendarService constructs the service.
func NewCalendarService(events calendarEventRepository, logger *zap.Logger, weekStart time.Weekday, previewLimit int) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if previewLimit <= 0 {
		previewLimit = 3
	}
	return &CalendarService{events: events, logger: logger, weekStart: weekStart, previewLimit: previewLimit}
}

// WeekStart exposes the configured first day of the week.
func (s *CalendarService) WeekStart() time.Weekday {
	return s.weekStart
}

// Grid projects the actor's squad events for the requested view mode
// around the reference date.
func (s *CalendarService) Grid(ctx context.Context, actor *models.User, mode calendar.ViewMode, ref time.Time) (interface{}, error) {
	if !calendar.ValidViewMode(mode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "view must be one of day, week, month, year")
	}
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "join or create a squad to see a calendar")
	}

	now := time.Now().In(ref.Location())

	switch mode {
	case calendar.ViewDay:
		day := calendar.StartOfDay(ref)
		events, err := s.load(ctx, *actor.GroupID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		return calendar.BuildDayGrid(events, ref, now), nil
	case calendar.ViewWeek:
		start := calendar.StartOfWeek(ref, s.weekStart)
		events, err := s.load(ctx, *actor.GroupID, start, start.AddDate(0, 0, 7))
		if err != nil {
			return nil, err
		}
		return calendar.BuildWeekGrid(events, ref, now, s.weekStart), nil
	case calendar.ViewMonth:
		events, err := s.loadAll(ctx, *actor.GroupID)
		if err != nil {
			return nil, err
		}
		return calendar.BuildMonthGrid(events, ref, now, s.weekStart, s.previewLimit), nil
	default:
		events, err := s.loadAll(ctx, *actor.GroupID)
		if err != nil {
			return nil, err
		}
		return calendar.BuildYearGrid(events, ref, now, s.weekStart, s.previewLimit), nil
	}
}

func (s *CalendarService) load(ctx context.Context, groupID string, from, to time.Time) ([]models.CalendarEvent, error) {
	events, err := s.events.ListByGroupBetween(ctx, groupID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	return events, nil
}

func (s *CalendarService) loadAll(ctx context.Context, groupID string) ([]models.CalendarEvent, error) {
	events, err := s.events.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	return events, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/calendar"
	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/export"
)

type reportGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type reportUserRepository interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.User, error)
}

// ReportFormat selects the rendering for a schedule report.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ReportService renders the squad's weekly agenda as a downloadable
// document.
type ReportService struct {
	events    calendarEventRepository
	groups    reportGroupRepository
	users     reportUserRepository
	pdf       *export.SchedulePDFExporter
	csv       *export.ScheduleCSVExporter
	logger    *zap.Logger
	weekStart time.Weekday
}

// NewReportService constructs the service.
func NewReportService(events calendarEventRepository, groups reportGroupRepository, users reportUserRepository, logger *zap.Logger, weekStart time.Weekday) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		events:    events,
		groups:    groups,
		users:     users,
		pdf:       export.NewSchedulePDFExporter(),
		csv:       export.NewScheduleCSVExporter(),
		logger:    logger,
		weekStart: weekStart,
	}
}

// WeeklySchedule renders the agenda for the week containing ref.
// Returns the document bytes, a suggested filename and the MIME type.
func (s *ReportService) WeeklySchedule(ctx context.Context, actor *models.User, ref time.Time, format ReportFormat) ([]byte, string, string, error) {
	if actor.GroupID == nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrNoGroup, "join or create a squad to export a schedule")
	}
	if format != ReportFormatPDF && format != ReportFormatCSV {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}

	group, err := s.groups.FindByID(ctx, *actor.GroupID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load squad")
	}

	start := calendar.StartOfWeek(ref, s.weekStart)
	end := start.AddDate(0, 0, 7)

	events, err := s.events.ListByGroupBetween(ctx, group.ID, start, end)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	names := s.memberNames(ctx, group.ID)
	doc := buildScheduleDocument(group.Name, start, events, names)

	switch format {
	case ReportFormatCSV:
		data, err := s.csv.Render(doc)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
		}
		return data, scheduleFilename(group.Name, start, "csv"), "text/csv", nil
	default:
		data, err := s.pdf.Render(doc)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
		}
		return data, scheduleFilename(group.Name, start, "pdf"), "application/pdf", nil
	}
}

// memberNames maps member IDs to display names. Name resolution is
// cosmetic, so a lookup failure degrades to raw IDs instead of failing
// the report.
func (s *ReportService) memberNames(ctx context.Context, groupID string) map[string]string {
	members, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Warn("failed to resolve member names for report", zap.String("group_id", groupID), zap.Error(err))
		return nil
	}
	names := make(map[string]string, len(members))
	for _, member := range members {
		names[member.ID] = member.DisplayName
	}
	return names
}

func buildScheduleDocument(squadName string, weekStart time.Time, events []models.CalendarEvent, names map[string]string) export.ScheduleDocument {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})

	days := make([]export.ScheduleDay, 7)
	for i := range days {
		day := weekStart.AddDate(0, 0, i)
		days[i].Label = day.Format("Monday, 2 January 2006")
		for _, event := range events {
			if !calendar.SameDay(event.StartTime.In(weekStart.Location()), day) {
				continue
			}
			entry := export.ScheduleEntry{
				TimeRange:    fmt.Sprintf("%s - %s", event.StartTime.Format("15:04"), event.EndTime.Format("15:04")),
				Title:        event.Title,
				Participants: participantNames(event.Participants, names),
			}
			if event.IsAllDay {
				entry.TimeRange = "all day"
			}
			if event.MeetingLink != nil {
				entry.Location = *event.MeetingLink
			}
			days[i].Entries = append(days[i].Entries, entry)
		}
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	return export.ScheduleDocument{
		Title:    fmt.Sprintf("%s - weekly schedule", squadName),
		Subtitle: fmt.Sprintf("%s to %s", weekStart.Format("2 Jan 2006"), weekEnd.Format("2 Jan 2006")),
		Days:     days,
	}
}

func participantNames(ids []string, names map[string]string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, id)
	}
	return strings.Join(parts, ", ")
}

func scheduleFilename(squadName string, weekStart time.Time, ext string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(squadName), " ", "-"))
	if slug == "" {
		slug = "squad"
	}
	return fmt.Sprintf("%s-schedule-%s.%s", slug, weekStart.Format("2006-01-02"), ext)
}

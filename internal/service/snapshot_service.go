package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	"github.com/rakazet/basecamp-kita-api/internal/view"
)

type snapshotCommentRepository interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Comment, error)
}

// SnapshotService assembles the authoritative state of one collection
// for realtime broadcast. The hub calls it once per mutation and fans
// the result out to every subscriber of the group.
type SnapshotService struct {
	events    calendarEventRepository
	users     reportUserRepository
	comments  snapshotCommentRepository
	activity  *ActivityService
	messages  *MessageService
	presence  presenceReader
	logger    *zap.Logger
	feedLimit int
}

// NewSnapshotService constructs the service.
func NewSnapshotService(events calendarEventRepository, users reportUserRepository, comments snapshotCommentRepository, activity *ActivityService, messages *MessageService, presence presenceReader, logger *zap.Logger, feedLimit int) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if feedLimit <= 0 {
		feedLimit = 10
	}
	return &SnapshotService{
		events:    events,
		users:     users,
		comments:  comments,
		activity:  activity,
		messages:  messages,
		presence:  presence,
		logger:    logger,
		feedLimit: feedLimit,
	}
}

// LoadSnapshot returns the full current state of the collection for
// the group.
func (s *SnapshotService) LoadSnapshot(ctx context.Context, groupID, collection string) (interface{}, error) {
	switch collection {
	case "events":
		return s.events.ListByGroup(ctx, groupID)
	case "users":
		return s.memberViews(ctx, groupID)
	case "presence":
		return s.presenceMap(ctx, groupID)
	case "activity":
		return s.activity.Recent(ctx, groupID, s.feedLimit)
	case "comments":
		return s.comments.ListByGroup(ctx, groupID)
	case "messages":
		return s.messages.History(ctx, groupID)
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

func (s *SnapshotService) memberViews(ctx context.Context, groupID string) ([]view.MemberView, error) {
	members, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	presence, err := s.presenceMap(ctx, groupID)
	if err != nil {
		// A presence outage should not blank the member list; flags
		// just read offline until Redis recovers.
		s.logger.Warn("presence unavailable for snapshot", zap.String("group_id", groupID), zap.Error(err))
		presence = nil
	}
	return view.MergeMembers(members, presence), nil
}

func (s *SnapshotService) presenceMap(ctx context.Context, groupID string) (map[string]bool, error) {
	members, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ID)
	}
	return s.presence.Snapshot(ctx, ids)
}

package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/jobs"
)

type activityRepository interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
	ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error)
}

type activityMetrics interface {
	ActivityDropped()
}

// ActivityService projects committed transitions into the append-only
// activity feed. Writes are best-effort telemetry: they are queued off
// the mutation path and failures only reach the diagnostic log, never
// the caller.
type ActivityService struct {
	repo      activityRepository
	queue     *jobs.Queue
	notifier  Notifier
	logger    *zap.Logger
	metrics   activityMetrics
	feedLimit int
}

// NewActivityService constructs the service. Call StartQueue before
// recording; without a started queue entries are written inline (still
// best-effort).
func NewActivityService(repo activityRepository, notifier Notifier, logger *zap.Logger, metrics activityMetrics, feedLimit int) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if feedLimit <= 0 {
		feedLimit = 10
	}
	s := &ActivityService{repo: repo, notifier: notifier, logger: logger, metrics: metrics, feedLimit: feedLimit}
	s.queue = jobs.NewQueue("activity", s.handle, jobs.QueueConfig{Workers: 1, BufferSize: 64, Logger: logger})
	return s
}

// StartQueue begins background consumption of queued log writes.
func (s *ActivityService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue drains the workers.
func (s *ActivityService) StopQueue() {
	s.queue.Stop()
}

// Record synthesizes one log entry carrying a snapshot of the actor's
// identity at the time of the action. Actors without a squad are
// skipped; the feed is squad-scoped.
func (s *ActivityService) Record(actor *models.User, activityType models.ActivityType, entityID, entityTitle string, details *string) {
	if actor == nil || actor.GroupID == nil {
		return
	}

	entry := &models.ActivityLog{
		ID:           uuid.NewString(),
		Type:         activityType,
		EntityType:   "event",
		EntityID:     entityID,
		EntityTitle:  entityTitle,
		UserID:       actor.ID,
		UserName:     actor.DisplayName,
		UserPhotoURL: actor.PhotoURL,
		GroupID:      *actor.GroupID,
		Details:      details,
	}

	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: string(activityType), Payload: entry}); err != nil {
		// Queue not running or full: fall back to an inline write.
		if insertErr := s.repo.Insert(context.Background(), entry); insertErr != nil {
			s.logger.Warn("activity log write failed", zap.String("entry_id", entry.ID), zap.Error(insertErr))
			s.countDropped()
		} else {
			s.notifyGroup(entry.GroupID)
		}
	}
}

// Recent returns the newest entries for a squad, newest first. The
// backing query orders by timestamp but the slice is re-sorted here so
// the contract holds even if the store cannot guarantee order.
func (s *ActivityService) Recent(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > s.feedLimit {
		limit = s.feedLimit
	}
	entries, err := s.repo.ListRecentByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})
	return entries, nil
}

func (s *ActivityService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.ActivityLog)
	if !ok {
		s.logger.Warn("activity job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Warn("activity log write failed", zap.String("entry_id", entry.ID), zap.Error(err))
		s.countDropped()
		return nil
	}
	s.notifyGroup(entry.GroupID)
	return nil
}

func (s *ActivityService) countDropped() {
	if s.metrics != nil {
		s.metrics.ActivityDropped()
	}
}

func (s *ActivityService) notifyGroup(groupID string) {
	if s.notifier != nil {
		s.notifier.Notify(groupID, "activity")
	}
}

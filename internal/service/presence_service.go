package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type presenceUserRepository interface {
	UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
	UpdateCurrentActivity(ctx context.Context, id, activity string) error
}

// PresenceService tracks per-user online flags in Redis. A user is
// online while their heartbeat key exists; the key's TTL turns a silent
// disconnect into an offline state without any cleanup pass. Last-seen
// timestamps are persisted to the users table.
type PresenceService struct {
	redis    *redis.Client
	users    presenceUserRepository
	notifier Notifier
	logger   *zap.Logger
	ttl      time.Duration
}

// NewPresenceService constructs the service.
func NewPresenceService(client *redis.Client, users presenceUserRepository, notifier Notifier, logger *zap.Logger, ttl time.Duration) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &PresenceService{redis: client, users: users, notifier: notifier, logger: logger, ttl: ttl}
}

func presenceKey(userID string) string {
	return "presence:online:" + userID
}

// Heartbeat marks the user online for one TTL window and refreshes
// their last-seen timestamp.
func (s *PresenceService) Heartbeat(ctx context.Context, user *models.User, currentActivity string) error {
	if err := s.redis.Set(ctx, presenceKey(user.ID), "1", s.ttl).Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record presence")
	}

	now := time.Now().UTC()
	if err := s.users.UpdatePresence(ctx, user.ID, true, now); err != nil {
		s.logger.Warn("presence write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	if currentActivity != "" && currentActivity != user.CurrentActivity {
		if err := s.users.UpdateCurrentActivity(ctx, user.ID, currentActivity); err != nil {
			s.logger.Warn("activity status write failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.notifyGroup(user)
	return nil
}

// Offline clears the user's heartbeat immediately (clean sign-out or
// websocket teardown).
func (s *PresenceService) Offline(ctx context.Context, user *models.User) {
	if err := s.redis.Del(ctx, presenceKey(user.ID)).Err(); err != nil {
		s.logger.Warn("presence delete failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	if err := s.users.UpdatePresence(ctx, user.ID, false, time.Now().UTC()); err != nil {
		s.logger.Warn("presence write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.notifyGroup(user)
}

// Snapshot returns the online flag for each requested user id.
func (s *PresenceService) Snapshot(ctx context.Context, userIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read presence")
	}
	for i, v := range values {
		online[userIDs[i]] = v != nil
	}
	return online, nil
}

func (s *PresenceService) notifyGroup(user *models.User) {
	if s.notifier != nil && user.GroupID != nil {
		s.notifier.Notify(*user.GroupID, "presence")
	}
}

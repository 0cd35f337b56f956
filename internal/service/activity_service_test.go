package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

type mockActivityRepo struct {
	mu      sync.Mutex
	entries []models.ActivityLog
	fail    bool
}

func (m *mockActivityRepo) Insert(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockActivityRepo) ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityLog
	for _, e := range m.entries {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockActivityRepo) snapshot() []models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLog(nil), m.entries...)
}

func TestActivityRecordSnapshotsIdentity(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, &mockNotifier{}, zap.NewNop(), nil, 10)

	photo := "https://cdn/avatar.png"
	actor := member("B", "g1")
	actor.DisplayName = "Bimo"
	actor.PhotoURL = &photo

	// Queue never started: the entry is written inline.
	svc.Record(actor, models.ActivityJoin, "mabar", "Mabar", nil)

	entries := repo.snapshot()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, models.ActivityJoin, entry.Type)
	assert.Equal(t, "B", entry.UserID)
	assert.Equal(t, "Bimo", entry.UserName, "display name is snapshotted at log time")
	assert.Equal(t, &photo, entry.UserPhotoURL)
	assert.Equal(t, "g1", entry.GroupID)
	assert.Equal(t, "event", entry.EntityType)
	assert.NotEmpty(t, entry.ID)
}

func TestActivityRecordSkipsActorsWithoutSquad(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, &mockNotifier{}, zap.NewNop(), nil, 10)

	svc.Record(&models.User{ID: "solo"}, models.ActivityCreate, "e1", "Event", nil)
	assert.Empty(t, repo.snapshot())
}

type droppedCounter struct {
	dropped int
}

func (d *droppedCounter) ActivityDropped() { d.dropped++ }

func TestActivityRecordSwallowsStoreFailures(t *testing.T) {
	repo := &mockActivityRepo{fail: true}
	notifier := &mockNotifier{}
	metrics := &droppedCounter{}
	svc := NewActivityService(repo, notifier, zap.NewNop(), metrics, 10)

	// A failing write must not panic or surface anywhere.
	svc.Record(member("B", "g1"), models.ActivityJoin, "mabar", "Mabar", nil)
	assert.Empty(t, notifier.calls, "no broadcast for an entry that never landed")
	assert.Equal(t, 1, metrics.dropped, "the loss is counted")
}

func TestActivityQueueDrainsInBackground(t *testing.T) {
	repo := &mockActivityRepo{}
	notifier := &mockNotifier{}
	svc := NewActivityService(repo, notifier, zap.NewNop(), nil, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartQueue(ctx)
	defer svc.StopQueue()

	svc.Record(member("B", "g1"), models.ActivityJoin, "mabar", "Mabar", nil)

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Stop waits for the worker, so the notifier is quiet after this.
	svc.StopQueue()
	assert.Contains(t, notifier.calls, "activity")
}

func TestActivityRecentOrdersNewestFirst(t *testing.T) {
	repo := &mockActivityRepo{}
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		repo.entries = append(repo.entries, models.ActivityLog{
			ID:        id,
			GroupID:   "g1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := NewActivityService(repo, &mockNotifier{}, zap.NewNop(), nil, 10)

	entries, err := svc.Recent(context.Background(), "g1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].ID)
	assert.Equal(t, "first", entries[2].ID)
}

func TestActivityRecentClampsLimit(t *testing.T) {
	repo := &mockActivityRepo{}
	for i := 0; i < 20; i++ {
		repo.entries = append(repo.entries, models.ActivityLog{
			ID:        string(rune('a' + i)),
			GroupID:   "g1",
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	svc := NewActivityService(repo, &mockNotifier{}, zap.NewNop(), nil, 10)

	entries, err := svc.Recent(context.Background(), "g1", 500)
	require.NoError(t, err)
	assert.Len(t, entries, 10, "requests beyond the feed limit are clamped")
}

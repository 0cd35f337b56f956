package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type mockMessageRepo struct {
	messages  []models.Message
	lastLimit int
}

func (m *mockMessageRepo) Insert(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = "m1"
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *mockMessageRepo) ListRecentByGroup(ctx context.Context, groupID string, limit int) ([]models.Message, error) {
	m.lastLimit = limit
	var out []models.Message
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func TestMessageSendSnapshotsSenderIdentity(t *testing.T) {
	repo := &mockMessageRepo{}
	notifier := &mockNotifier{}
	svc := NewMessageService(repo, notifier, zap.NewNop(), 100)

	photo := "https://cdn/avatar.png"
	actor := member("B", "g1")
	actor.DisplayName = "Bimo"
	actor.PhotoURL = &photo

	sent, err := svc.Send(context.Background(), actor, "  mabar malam ini?  ")
	require.NoError(t, err)

	assert.Equal(t, "mabar malam ini?", sent.Text, "text is trimmed")
	assert.Equal(t, "g1", sent.GroupID)
	assert.Equal(t, "B", sent.SenderID)
	assert.Equal(t, "Bimo", sent.SenderName, "display name is snapshotted at send time")
	assert.Equal(t, &photo, sent.SenderPhotoURL)
	assert.Equal(t, []string{"messages"}, notifier.calls)
}

func TestMessageSendRequiresSquad(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, &mockNotifier{}, zap.NewNop(), 100)

	_, err := svc.Send(context.Background(), &models.User{ID: "solo"}, "hello?")
	assert.ErrorIs(t, err, appErrors.ErrNoGroup)
}

func TestMessageSendRejectsEmptyAndOversizedText(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, &mockNotifier{}, zap.NewNop(), 100)
	actor := member("B", "g1")

	_, err := svc.Send(context.Background(), actor, "   ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Send(context.Background(), actor, strings.Repeat("a", maxMessageLength+1))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, repo.messages, "rejected messages never reach the store")
}

func TestMessageRecentClampsToHistoryLimit(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, &mockNotifier{}, zap.NewNop(), 50)
	actor := member("B", "g1")

	_, err := svc.Recent(context.Background(), actor, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)

	_, err = svc.Recent(context.Background(), actor, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit, "non-positive limits fall back to the window")

	_, err = svc.Recent(context.Background(), actor, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestMessageRecentRequiresSquad(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, &mockNotifier{}, zap.NewNop(), 100)

	_, err := svc.Recent(context.Background(), &models.User{ID: "solo"}, 10)
	assert.ErrorIs(t, err, appErrors.ErrNoGroup)
}

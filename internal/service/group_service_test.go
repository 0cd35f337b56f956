package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type mockGroupRepo struct {
	groups map[string]*models.Group
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	if m.groups == nil {
		m.groups = make(map[string]*models.Group)
	}
	if group.ID == "" {
		group.ID = "new-group"
	}
	clone := *group
	m.groups[group.ID] = &clone
	return nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if g, ok := m.groups[id]; ok {
		clone := *g
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) FindByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	for _, g := range m.groups {
		if g.InviteCode == code {
			clone := *g
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) AddMember(ctx context.Context, groupID, userID string) error {
	g := m.groups[groupID]
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	g := m.groups[groupID]
	g.Members = remove(g.Members, userID)
	return nil
}

type mockGroupUserRepo struct {
	assignments map[string]*string
}

func (m *mockGroupUserRepo) SetGroup(ctx context.Context, id string, groupID *string) error {
	if m.assignments == nil {
		m.assignments = make(map[string]*string)
	}
	m.assignments[id] = groupID
	return nil
}

func newGroupFixture() (*GroupService, *mockGroupRepo, *mockGroupUserRepo, *mockNotifier) {
	groups := &mockGroupRepo{groups: map[string]*models.Group{}}
	users := &mockGroupUserRepo{}
	notifier := &mockNotifier{}
	svc := NewGroupService(groups, users, validator.New(), notifier, zap.NewNop())
	return svc, groups, users, notifier
}

func TestGroupCreate(t *testing.T) {
	svc, _, users, notifier := newGroupFixture()
	actor := &models.User{ID: "A", DisplayName: "A"}

	group, err := svc.Create(context.Background(), actor, CreateGroupRequest{Name: "  Basecamp Kita  "})
	require.NoError(t, err)

	assert.Equal(t, "Basecamp Kita", group.Name)
	assert.Len(t, group.InviteCode, 6)
	assert.NotContains(t, group.InviteCode, "0")
	assert.NotContains(t, group.InviteCode, "O")
	assert.Equal(t, []string{"A"}, []string(group.Members))
	require.NotNil(t, actor.GroupID)
	assert.Equal(t, group.ID, *actor.GroupID)
	assert.Equal(t, &group.ID, users.assignments["A"])
	assert.Contains(t, notifier.calls, "users")
}

func TestGroupCreateWhileInSquadConflicts(t *testing.T) {
	svc, _, _, _ := newGroupFixture()

	_, err := svc.Create(context.Background(), member("A", "g1"), CreateGroupRequest{Name: "Another"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestGroupJoinByInviteCode(t *testing.T) {
	svc, groups, users, _ := newGroupFixture()
	groups.groups["g1"] = &models.Group{ID: "g1", Name: "Squad", InviteCode: "ABC234", Members: []string{"A"}}
	actor := &models.User{ID: "B", DisplayName: "B"}

	// Codes are normalized: lowercase and padding are accepted.
	group, err := svc.Join(context.Background(), actor, "  abc234 ")
	require.NoError(t, err)

	assert.Equal(t, "g1", group.ID)
	assert.Contains(t, []string(groups.groups["g1"].Members), "B")
	require.NotNil(t, users.assignments["B"])
	assert.Equal(t, "g1", *users.assignments["B"])
}

func TestGroupJoinUnknownCode(t *testing.T) {
	svc, _, _, _ := newGroupFixture()

	_, err := svc.Join(context.Background(), &models.User{ID: "B"}, "ZZZZZZ")
	assert.ErrorIs(t, err, appErrors.ErrInviteCode)

	_, err = svc.Join(context.Background(), &models.User{ID: "B"}, "abc")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGroupLeaveKeepsSquadAlive(t *testing.T) {
	svc, groups, users, _ := newGroupFixture()
	groups.groups["g1"] = &models.Group{ID: "g1", Name: "Squad", InviteCode: "ABC234", Members: []string{"A"}}
	actor := member("A", "g1")

	require.NoError(t, svc.Leave(context.Background(), actor))

	assert.Nil(t, actor.GroupID)
	assert.Nil(t, users.assignments["A"])
	_, stillThere := groups.groups["g1"]
	assert.True(t, stillThere, "an empty squad is not auto-deleted")
	assert.Empty(t, groups.groups["g1"].Members)

	assert.ErrorIs(t, svc.Leave(context.Background(), actor), appErrors.ErrNoGroup)
}

func TestInviteCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateInviteCode()
		require.NoError(t, err)
		require.Len(t, code, inviteCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(inviteCodeAlphabet, r), "unexpected rune %q", r)
		}
	}
}

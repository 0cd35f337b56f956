package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type groupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

type groupUserRepository interface {
	SetGroup(ctx context.Context, id string, groupID *string) error
}

// GroupService manages squads: creation, invite-code join and leave.
type GroupService struct {
	groups    groupRepository
	users     groupUserRepository
	validator *validator.Validate
	notifier  Notifier
	logger    *zap.Logger
}

// NewGroupService constructs the service.
func NewGroupService(groups groupRepository, users groupUserRepository, validate *validator.Validate, notifier Notifier, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, users: users, validator: validate, notifier: notifier, logger: logger}
}

// CreateGroupRequest names the new squad.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=2,max=60"`
}

// Create starts a new squad with the actor as its first member and a
// fresh invite code.
func (s *GroupService) Create(ctx context.Context, actor *models.User, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid squad payload")
	}
	if actor.GroupID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave your current squad first")
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invite code")
	}

	group := &models.Group{
		Name:       strings.TrimSpace(req.Name),
		InviteCode: code,
		CreatedBy:  actor.ID,
		Members:    []string{actor.ID},
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create squad")
	}
	if err := s.users.SetGroup(ctx, actor.ID, &group.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign squad")
	}
	actor.GroupID = &group.ID

	s.notifyUsers(group.ID)
	return group, nil
}

// Join adds the actor to the squad matching the invite code.
func (s *GroupService) Join(ctx context.Context, actor *models.User, inviteCode string) (*models.Group, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if len(code) != inviteCodeLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invite code must be 6 characters")
	}
	if actor.GroupID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave your current squad first")
	}

	group, err := s.groups.FindByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInviteCode
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up invite code")
	}

	if err := s.groups.AddMember(ctx, group.ID, actor.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join squad")
	}
	if err := s.users.SetGroup(ctx, actor.ID, &group.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign squad")
	}
	actor.GroupID = &group.ID

	s.notifyUsers(group.ID)
	return group, nil
}

// Leave clears the actor's membership. Squads are never auto-deleted,
// even when the last member walks out.
func (s *GroupService) Leave(ctx context.Context, actor *models.User) error {
	if actor.GroupID == nil {
		return appErrors.Clone(appErrors.ErrNoGroup, "you are not in a squad")
	}
	groupID := *actor.GroupID

	if err := s.groups.RemoveMember(ctx, groupID, actor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave squad")
	}
	if err := s.users.SetGroup(ctx, actor.ID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear squad")
	}
	actor.GroupID = nil

	s.notifyUsers(groupID)
	return nil
}

// Get returns the actor's current squad.
func (s *GroupService) Get(ctx context.Context, actor *models.User) (*models.Group, error) {
	if actor.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrNoGroup, "you are not in a squad")
	}
	group, err := s.groups.FindByID(ctx, *actor.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "squad not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load squad")
	}
	return group, nil
}

func (s *GroupService) notifyUsers(groupID string) {
	if s.notifier != nil {
		s.notifier.Notify(groupID, "users")
	}
}

const inviteCodeLength = 6

// Invite codes avoid ambiguous characters (0/O, 1/I).
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, inviteCodeLength)
	for i, b := range buf {
		code[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(code), nil
}

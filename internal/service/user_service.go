package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

type presenceReader interface {
	Snapshot(ctx context.Context, userIDs []string) (map[string]bool, error)
}

// UserService reads users and merges the live presence overlay onto the
// stored documents.
type UserService struct {
	repo      userRepository
	presence  presenceReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userRepository, presence presenceReader, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, presence: presence, validator: validate, logger: logger}
}

// Get fetches one user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}

// List returns all users with the presence overlay applied. A Redis
// failure degrades to the stored flags rather than failing the read.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return s.withPresence(ctx, users), nil
}

// ListSquad returns the members of the actor's squad with presence.
func (s *UserService) ListSquad(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor.GroupID == nil {
		return []models.User{}, nil
	}
	users, err := s.repo.ListByGroup(ctx, *actor.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list squad")
	}
	return s.withPresence(ctx, users), nil
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	DisplayName  string  `json:"display_name" validate:"required"`
	PhotoURL     *string `json:"photo_url"`
	GamingRole   *string `json:"gaming_role"`
	FavoriteGame *string `json:"favorite_game"`
}

// UpdateProfile writes the actor's profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	actor.DisplayName = req.DisplayName
	actor.PhotoURL = req.PhotoURL
	actor.GamingRole = req.GamingRole
	actor.FavoriteGame = req.FavoriteGame

	if err := s.repo.UpdateProfile(ctx, actor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return actor, nil
}

func (s *UserService) withPresence(ctx context.Context, users []models.User) []models.User {
	if s.presence == nil || len(users) == 0 {
		return users
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	online, err := s.presence.Snapshot(ctx, ids)
	if err != nil {
		s.logger.Warn("presence snapshot failed", zap.Error(err))
		return users
	}
	for i := range users {
		users[i].IsOnline = online[users[i].ID]
	}
	return users
}

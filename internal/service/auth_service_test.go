package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok && !t.Revoked {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
			t.RevokedAt = &now
		}
	}
	return nil
}

func newAuthFixture() (*AuthService, *mockAuthRepo) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "basecamp-kita",
	})
	return svc, repo
}

func TestAuthRegisterSignsUserIn(t *testing.T) {
	svc, repo := newAuthFixture()

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "andi@example.com",
		Password:    "rahasia-banget",
		DisplayName: "Andi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Andi", resp.User.DisplayName)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), resp.ExpiresIn)

	stored := repo.usersByEmail["andi@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "rahasia-banget", stored.PasswordHash, "password is never stored in clear")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia-banget")))
}

func TestAuthRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newAuthFixture()

	req := models.RegisterRequest{Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthRegisterValidatesPayload(t *testing.T) {
	svc, _ := newAuthFixture()

	cases := []models.RegisterRequest{
		{Email: "not-an-email", Password: "rahasia-banget", DisplayName: "Andi"},
		{Email: "andi@example.com", Password: "short", DisplayName: "Andi"},
		{Email: "andi@example.com", Password: "rahasia-banget"},
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "andi@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	// Unknown email reads identically to a wrong password.
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthLoginRecordsSessionOrigin(t *testing.T) {
	svc, repo := newAuthFixture()
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "andi@example.com", Password: "rahasia-banget",
		IP: "203.0.113.7", UserAgent: "test-agent",
	})
	require.NoError(t, err)

	stored := repo.tokens[resp.RefreshToken]
	require.NotNil(t, stored)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)
	assert.Equal(t, "test-agent", stored.UserAgent)
}

func TestAuthRefreshRevokesUsedToken(t *testing.T) {
	svc, repo := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)

	fresh, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, fresh.RefreshToken, "token rotates on every refresh")
	assert.True(t, repo.tokens[resp.RefreshToken].Revoked)

	// The consumed token no longer works.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthRefreshRejectsExpiredToken(t *testing.T) {
	svc, repo := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)

	repo.tokens[resp.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthLogoutRevokesAllSessions(t *testing.T) {
	svc, repo := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), models.LoginRequest{Email: "andi@example.com", Password: "rahasia-banget"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), resp.User.ID))
	assert.True(t, repo.tokens[resp.RefreshToken].Revoked)
	assert.True(t, repo.tokens[second.RefreshToken].Revoked)
}

func TestAuthValidateToken(t *testing.T) {
	svc, _ := newAuthFixture()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "andi@example.com", Password: "rahasia-banget", DisplayName: "Andi",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "andi@example.com", claims.Email)
	assert.Equal(t, "basecamp-kita", claims.Issuer)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	// Token signed with a different secret is refused.
	other := NewAuthService(newMockAuthRepo(), nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "other-secret", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

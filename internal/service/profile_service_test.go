package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
)

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProfileRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProfileRepo) UsernameTakenBy(ctx context.Context, username string, excludeUserID uuid.UUID) (bool, error) {
	args := m.Called(ctx, username, excludeUserID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfileRepo) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error {
	args := m.Called(ctx, userID, username)
	return args.Error(0)
}

func (m *mockProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockProfileRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepo) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	args := m.Called(ctx, followerID, followeeID)
	return args.Error(0)
}

func (m *mockProfileRepo) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	args := m.Called(ctx, followerID, followeeID)
	return args.Error(0)
}

func (m *mockProfileRepo) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfileRepo) ResyncFollowerCounts(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockProfileRepo) UpsertPayoutAccount(ctx context.Context, account *models.PayoutAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockProfileRepo) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PayoutAccount), args.Error(1)
}

func (m *mockProfileRepo) SetPayoutAccountVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	args := m.Called(ctx, userID, verified)
	return args.Error(0)
}

func TestProfileService_CheckUsername_Invalid(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()

	cases := []string{"", "ab", "плохое_имя", "has space", "dash-name", "dot.name"}
	for _, username := range cases {
		status, err := svc.CheckUsername(ctx, username, uuid.Nil)
		assert.NoError(t, err, username)
		assert.Equal(t, models.UsernameInvalid, status, username)
	}

	// До хранилища невалидные имена не доходят.
	repo.AssertNotCalled(t, "UsernameTakenBy", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileService_CheckUsername_Taken(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()

	repo.On("UsernameTakenBy", ctx, "JohnDoe", uuid.Nil).Return(true, nil)

	status, err := svc.CheckUsername(ctx, "JohnDoe", uuid.Nil)
	assert.NoError(t, err)
	assert.Equal(t, models.UsernameTaken, status)
}

func TestProfileService_CheckUsername_Available(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()

	repo.On("UsernameTakenBy", ctx, "new_user_42", uuid.Nil).Return(false, nil)

	status, err := svc.CheckUsername(ctx, "  new_user_42  ", uuid.Nil)
	assert.NoError(t, err)
	assert.Equal(t, models.UsernameAvailable, status)
}

func TestProfileService_CheckUsername_ExcludesSelf(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	userID := uuid.New()

	// Собственное имя пользователя занятым не считается: исключение
	// передаётся в запрос хранилища.
	repo.On("UsernameTakenBy", ctx, "myname", userID).Return(false, nil)

	status, err := svc.CheckUsername(ctx, "myname", userID)
	assert.NoError(t, err)
	assert.Equal(t, models.UsernameAvailable, status)
	repo.AssertExpectations(t)
}

func TestProfileService_CheckUsername_RepoError(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()

	repo.On("UsernameTakenBy", ctx, "someone", uuid.Nil).Return(false, errors.New("db down"))

	_, err := svc.CheckUsername(ctx, "someone", uuid.Nil)
	assert.Error(t, err)
}

func TestProfileService_ChangeUsername_Taken(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("UsernameTakenBy", ctx, "occupied", userID).Return(true, nil)

	err := svc.ChangeUsername(ctx, userID, "occupied")
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
	repo.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileService_ChangeUsername_Success(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("UsernameTakenBy", ctx, "fresh_name", userID).Return(false, nil)
	repo.On("UpdateUsername", ctx, userID, "fresh_name").Return(nil)

	assert.NoError(t, svc.ChangeUsername(ctx, userID, "fresh_name"))
	repo.AssertExpectations(t)
}

func TestProfileService_Follow_Self(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	userID := uuid.New()

	err := svc.Follow(context.Background(), userID, userID)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Follow", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileService_Follow_FolloweeNotFound(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	followeeID := uuid.New()

	repo.On("GetByID", ctx, followeeID).Return(nil, repository.ErrUserNotFound)

	err := svc.Follow(ctx, uuid.New(), followeeID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestProfileService_Follow_Notifies(t *testing.T) {
	repo := new(mockProfileRepo)
	notifier := new(mockNotifier)
	svc := NewProfileService(repo, notifier, nil)
	ctx := context.Background()
	followerID := uuid.New()
	followeeID := uuid.New()

	repo.On("GetByID", ctx, followeeID).Return(&models.User{ID: followeeID}, nil)
	repo.On("Follow", ctx, followerID, followeeID).Return(nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == followeeID && n.Type == models.NotificationNewFollower
	})).Return(nil)

	assert.NoError(t, svc.Follow(ctx, followerID, followeeID))
	notifier.AssertExpectations(t)
}

func TestProfileService_Follow_InvalidatesFollowingCache(t *testing.T) {
	repo := new(mockProfileRepo)
	cache := NewCacheService()
	svc := NewProfileService(repo, nil, cache)
	ctx := context.Background()
	followerID := uuid.New()
	followeeID := uuid.New()

	cache.Set(FollowingCacheKey(followerID), []uuid.UUID{uuid.New()}, time.Minute)
	repo.On("GetByID", ctx, followeeID).Return(&models.User{ID: followeeID}, nil)
	repo.On("Follow", ctx, followerID, followeeID).Return(nil)

	assert.NoError(t, svc.Follow(ctx, followerID, followeeID))
	_, ok := cache.Get(FollowingCacheKey(followerID))
	assert.False(t, ok)
}

func TestProfileService_Unfollow_InvalidatesFollowingCache(t *testing.T) {
	repo := new(mockProfileRepo)
	cache := NewCacheService()
	svc := NewProfileService(repo, nil, cache)
	ctx := context.Background()
	followerID := uuid.New()
	followeeID := uuid.New()

	cache.Set(FollowingCacheKey(followerID), []uuid.UUID{followeeID}, time.Minute)
	repo.On("Unfollow", ctx, followerID, followeeID).Return(nil)

	assert.NoError(t, svc.Unfollow(ctx, followerID, followeeID))
	_, ok := cache.Get(FollowingCacheKey(followerID))
	assert.False(t, ok)
}

func TestProfileService_RegisterPayoutAccount_Unverified(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("UpsertPayoutAccount", ctx, mock.MatchedBy(func(a *models.PayoutAccount) bool {
		return a.UserID == userID && !a.Verified
	})).Return(nil)

	account, err := svc.RegisterPayoutAccount(ctx, userID, "stripe", "acct_123")
	assert.NoError(t, err)
	assert.False(t, account.Verified)
}

func TestProfileService_RegisterPayoutAccount_EmptyProvider(t *testing.T) {
	svc := NewProfileService(new(mockProfileRepo), nil, nil)

	_, err := svc.RegisterPayoutAccount(context.Background(), uuid.New(), "", "acct_123")
	assert.True(t, apperror.IsValidation(err))
}

func TestProfileService_GetPayoutAccount_NotFound(t *testing.T) {
	repo := new(mockProfileRepo)
	svc := NewProfileService(repo, nil, nil)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetPayoutAccount", ctx, userID).Return(nil, repository.ErrPayoutAccountNotFound)

	_, err := svc.GetPayoutAccount(ctx, userID)
	assert.True(t, apperror.IsNotFound(err))
}

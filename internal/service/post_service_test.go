package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
)

type mockPostStore struct {
	mock.Mock
}

func (m *mockPostStore) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostStore) UpdateCaption(ctx context.Context, postID uuid.UUID, caption *string) (*models.Post, error) {
	args := m.Called(ctx, postID, caption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostStore) SoftDelete(ctx context.Context, postID uuid.UUID) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *mockPostStore) Like(ctx context.Context, postID, userID uuid.UUID) error {
	args := m.Called(ctx, postID, userID)
	return args.Error(0)
}

func (m *mockPostStore) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	args := m.Called(ctx, postID, userID)
	return args.Error(0)
}

func (m *mockPostStore) CreateComment(ctx context.Context, comment *models.PostComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *mockPostStore) ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.PostComment, error) {
	args := m.Called(ctx, postID, limit, offset)
	return args.Get(0).([]models.PostComment), args.Error(1)
}

func (m *mockPostStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Post, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *mockPostStore) CreatePromotion(ctx context.Context, promo *models.PromotedPost) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func TestPostService_CreatePost_Empty(t *testing.T) {
	svc := NewPostService(new(mockPostStore), nil)

	_, err := svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{})
	assert.True(t, apperror.IsValidation(err))
}

func TestPostService_CreatePost_TaggedContent(t *testing.T) {
	store := new(mockPostStore)
	svc := NewPostService(store, nil)
	ctx := context.Background()
	userID := uuid.New()

	store.On("Create", ctx, mock.MatchedBy(func(p *models.Post) bool {
		content := models.DecodePostContent(p.Content)
		return content.Type == models.PostContentImage && len(content.URLs) == 2
	})).Return(nil)

	_, err := svc.CreatePost(ctx, userID, CreatePostInput{
		ImageURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	})
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPostService_PromotePost_Success(t *testing.T) {
	store := new(mockPostStore)
	svc := NewPostService(store, nil)
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: authorID}, nil)
	store.On("CreatePromotion", ctx, mock.MatchedBy(func(p *models.PromotedPost) bool {
		return p.PostID == postID && p.Tier == models.PromotionTierPremium
	})).Return(nil)

	promo, err := svc.PromotePost(ctx, authorID, postID, models.PromotionTierPremium, now, now.Add(7*24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, models.PromotionTierPremium, promo.Tier)
}

func TestPostService_PromotePost_InvalidTier(t *testing.T) {
	svc := NewPostService(new(mockPostStore), nil)

	_, err := svc.PromotePost(context.Background(), uuid.New(), uuid.New(), "platinum", time.Now(), time.Now().Add(48*time.Hour))
	assert.True(t, apperror.IsValidation(err))
}

func TestPostService_PromotePost_TooShort(t *testing.T) {
	svc := NewPostService(new(mockPostStore), nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.PromotePost(context.Background(), uuid.New(), uuid.New(), models.PromotionTierBasic, now, now.Add(time.Hour))
	assert.True(t, apperror.IsValidation(err))
}

func TestPostService_PromotePost_TooLong(t *testing.T) {
	svc := NewPostService(new(mockPostStore), nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.PromotePost(context.Background(), uuid.New(), uuid.New(), models.PromotionTierBasic, now, now.Add(45*24*time.Hour))
	assert.True(t, apperror.IsValidation(err))
}

func TestPostService_PromotePost_ExpiredWindow(t *testing.T) {
	svc := NewPostService(new(mockPostStore), nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.PromotePost(context.Background(), uuid.New(), uuid.New(), models.PromotionTierBasic,
		now.Add(-72*time.Hour), now.Add(-24*time.Hour))
	assert.True(t, apperror.IsValidation(err))
}

func TestPostService_PromotePost_NotAuthor(t *testing.T) {
	store := new(mockPostStore)
	svc := NewPostService(store, nil)
	ctx := context.Background()
	postID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: uuid.New()}, nil)

	_, err := svc.PromotePost(ctx, uuid.New(), postID, models.PromotionTierFeatured, now, now.Add(48*time.Hour))
	assert.True(t, apperror.IsForbidden(err))
	store.AssertNotCalled(t, "CreatePromotion", mock.Anything, mock.Anything)
}

func TestPostService_Like_NotifiesAuthor(t *testing.T) {
	store := new(mockPostStore)
	notifier := new(mockNotifier)
	svc := NewPostService(store, notifier)
	ctx := context.Background()
	authorID := uuid.New()
	likerID := uuid.New()
	postID := uuid.New()

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: authorID}, nil)
	store.On("Like", ctx, postID, likerID).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == authorID && n.Type == models.NotificationPostLiked
	})).Return(nil)

	assert.NoError(t, svc.Like(ctx, likerID, postID))
	notifier.AssertExpectations(t)
}

func TestPostService_Like_OwnPostNoNotification(t *testing.T) {
	store := new(mockPostStore)
	notifier := new(mockNotifier)
	svc := NewPostService(store, notifier)
	ctx := context.Background()
	authorID := uuid.New()
	postID := uuid.New()

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: authorID}, nil)
	store.On("Like", ctx, postID, authorID).Return(nil)

	assert.NoError(t, svc.Like(ctx, authorID, postID))
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestPostService_DeletePost_NotAuthor(t *testing.T) {
	store := new(mockPostStore)
	svc := NewPostService(store, nil)
	ctx := context.Background()
	postID := uuid.New()

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: uuid.New()}, nil)

	err := svc.DeletePost(ctx, uuid.New(), models.RoleCustomer, postID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestPostService_DeletePost_Admin(t *testing.T) {
	store := new(mockPostStore)
	svc := NewPostService(store, nil)
	ctx := context.Background()
	postID := uuid.New()

	store.On("GetByID", ctx, postID).Return(&models.Post{ID: postID, UserID: uuid.New()}, nil)
	store.On("SoftDelete", ctx, postID).Return(nil)

	assert.NoError(t, svc.DeletePost(ctx, uuid.New(), models.RoleAdmin, postID))
	store.AssertExpectations(t)
}

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
)

type mockFeedPostRepo struct {
	mock.Mock
}

func (m *mockFeedPostRepo) ListFeedCandidates(ctx context.Context, viewerID uuid.UUID, authorIDs []uuid.UUID, limit int) ([]models.Post, error) {
	args := m.Called(ctx, viewerID, authorIDs, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *mockFeedPostRepo) ListViewerInteractions(ctx context.Context, viewerID uuid.UUID, since time.Time) ([]models.ViewerInteraction, error) {
	args := m.Called(ctx, viewerID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ViewerInteraction), args.Error(1)
}

func (m *mockFeedPostRepo) ListActivePromotions(ctx context.Context, postIDs []uuid.UUID, now time.Time) ([]models.PromotedPost, error) {
	args := m.Called(ctx, postIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PromotedPost), args.Error(1)
}

func (m *mockFeedPostRepo) RecordImpressions(ctx context.Context, promotionIDs []uuid.UUID) error {
	args := m.Called(ctx, promotionIDs)
	return args.Error(0)
}

func (m *mockFeedPostRepo) RecordClick(ctx context.Context, promotionID uuid.UUID) error {
	args := m.Called(ctx, promotionID)
	return args.Error(0)
}

type mockFeedFollowRepo struct {
	mock.Mock
}

func (m *mockFeedFollowRepo) ListFollowing(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func newFeedFixture() (*mockFeedPostRepo, *mockFeedFollowRepo, *FeedService) {
	posts := new(mockFeedPostRepo)
	follows := new(mockFeedFollowRepo)
	svc := NewFeedService(posts, follows, NewCacheService(), DefaultFeedConfig())
	return posts, follows, svc
}

func textPost(id uuid.UUID, createdAt time.Time, likes, comments int) models.Post {
	return models.Post{
		ID:            id,
		UserID:        uuid.New(),
		Content:       `{"type":"text","content":"тест"}`,
		LikesCount:    likes,
		CommentsCount: comments,
		CreatedAt:     createdAt,
	}
}

func TestFeedService_GetFeed_PromotedFirst(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	// Органический пост заметно свежее и популярнее продвигаемых,
	// но продвижения всё равно идут первыми, featured впереди premium.
	organic := textPost(uuid.New(), now.Add(-time.Hour), 500, 100)
	premium := textPost(uuid.New(), now.Add(-40*time.Hour), 50, 10)
	featured := textPost(uuid.New(), now.Add(-48*time.Hour), 1, 0)

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{organic, premium, featured}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{
			{ID: uuid.New(), PostID: premium.ID, Tier: models.PromotionTierPremium},
			{ID: uuid.New(), PostID: featured.ID, Tier: models.PromotionTierFeatured},
		}, nil)
	posts.On("RecordImpressions", mock.Anything, mock.Anything).Return(nil)

	page, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, featured.ID, page.Items[0].Post.ID)
	assert.Equal(t, premium.ID, page.Items[1].Post.ID)
	assert.Equal(t, organic.ID, page.Items[2].Post.ID)
	assert.NotNil(t, page.Items[0].PromotionID)
	assert.Nil(t, page.Items[2].PromotionID)
}

func TestFeedService_GetFeed_TierBoostsAdditive(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	post := textPost(uuid.New(), now, 0, 0)
	promoID := uuid.New()

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{post}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{{ID: promoID, PostID: post.ID, Tier: models.PromotionTierBasic}}, nil)
	posts.On("RecordImpressions", mock.Anything, mock.Anything).Return(nil)

	page, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.InDelta(t, item.BaseScore+50, item.Score, 0.0001)
}

func TestFeedService_GetFeed_PromotionsUnavailable(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()

	post := textPost(uuid.New(), time.Now(), 3, 1)

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{post}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("promotions store down"))

	// Лента отдаётся без бустов, а не ошибкой.
	page, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].PromotionID)
	assert.Equal(t, page.Items[0].BaseScore, page.Items[0].Score)
	posts.AssertNotCalled(t, "RecordImpressions", mock.Anything, mock.Anything)
}

func TestFeedService_GetFeed_ImpressionOncePerSession(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	post := textPost(uuid.New(), now, 0, 0)
	promoID := uuid.New()

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{post}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{{ID: promoID, PostID: post.ID, Tier: models.PromotionTierBasic}}, nil)
	posts.On("RecordImpressions", mock.Anything, []uuid.UUID{promoID}).Return(nil)

	_, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	_, err = svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)

	// Повторный просмотр в той же сессии показ не дублирует.
	posts.AssertNumberOfCalls(t, "RecordImpressions", 1)

	_, err = svc.GetFeed(ctx, viewerID, "session-2", 0)
	assert.NoError(t, err)
	posts.AssertNumberOfCalls(t, "RecordImpressions", 2)
}

func TestFeedService_GetFeed_Pagination(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	candidates := make([]models.Post, 0, 7)
	for i := 0; i < 7; i++ {
		candidates = append(candidates, textPost(uuid.New(), now.Add(-time.Duration(i)*time.Hour), 0, 0))
	}

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return(candidates, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{}, nil)

	first, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Len(t, first.Items, 5)
	assert.True(t, first.HasMore)

	second, err := svc.GetFeed(ctx, viewerID, "session-1", 1)
	assert.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.False(t, second.HasMore)

	third, err := svc.GetFeed(ctx, viewerID, "session-1", 2)
	assert.NoError(t, err)
	assert.Empty(t, third.Items)
}

func TestFeedService_GetFeed_PersonalBoost(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	friend := uuid.New()
	familiar := textPost(uuid.New(), now.Add(-2*time.Hour), 0, 0)
	familiar.UserID = friend
	stranger := textPost(uuid.New(), now.Add(-2*time.Hour), 0, 0)

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{friend}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{friend}, mock.Anything).
		Return([]models.Post{stranger, familiar}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{{AuthorID: friend, Kind: "like", CreatedAt: now.Add(-24 * time.Hour)}}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{}, nil)

	page, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, familiar.ID, page.Items[0].Post.ID)
	assert.Greater(t, page.Items[0].Score, page.Items[1].Score)
}

func TestFeedService_GetFeed_Empty(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{}, nil)

	page, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestFeedService_GetFeed_FollowingCached(t *testing.T) {
	posts, follows, svc := newFeedFixture()
	ctx := context.Background()
	viewerID := uuid.New()
	now := time.Now()
	svc.now = func() time.Time { return now }

	post := textPost(uuid.New(), now, 0, 0)

	follows.On("ListFollowing", ctx, viewerID).Return([]uuid.UUID{}, nil)
	posts.On("ListFeedCandidates", ctx, viewerID, []uuid.UUID{}, mock.Anything).
		Return([]models.Post{post}, nil)
	posts.On("ListViewerInteractions", mock.Anything, viewerID, mock.Anything).
		Return([]models.ViewerInteraction{}, nil)
	posts.On("ListActivePromotions", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.PromotedPost{}, nil)

	_, err := svc.GetFeed(ctx, viewerID, "session-1", 0)
	assert.NoError(t, err)
	_, err = svc.GetFeed(ctx, viewerID, "session-1", 1)
	assert.NoError(t, err)

	// Вторая страница берёт граф подписок из кэша.
	follows.AssertNumberOfCalls(t, "ListFollowing", 1)
}

func TestFeedService_RecordPromotionClick(t *testing.T) {
	posts, _, svc := newFeedFixture()
	ctx := context.Background()
	promoID := uuid.New()

	posts.On("RecordClick", ctx, promoID).Return(nil)

	assert.NoError(t, svc.RecordPromotionClick(ctx, promoID))
	posts.AssertExpectations(t)
}

package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jerryawoyele/markezon-backend/internal/goroutine"
	"github.com/jerryawoyele/markezon-backend/internal/logger"
	"github.com/jerryawoyele/markezon-backend/internal/models"
)

// FeedPostRepository — доступ ранжировщика к публикациям и продвижениям.
type FeedPostRepository interface {
	ListFeedCandidates(ctx context.Context, viewerID uuid.UUID, authorIDs []uuid.UUID, limit int) ([]models.Post, error)
	ListViewerInteractions(ctx context.Context, viewerID uuid.UUID, since time.Time) ([]models.ViewerInteraction, error)
	ListActivePromotions(ctx context.Context, postIDs []uuid.UUID, now time.Time) ([]models.PromotedPost, error)
	RecordImpressions(ctx context.Context, promotionIDs []uuid.UUID) error
	RecordClick(ctx context.Context, promotionID uuid.UUID) error
}

// FeedFollowRepository — доступ к графу подписок.
type FeedFollowRepository interface {
	ListFollowing(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// FeedConfig — настраиваемые веса ранжирования.
type FeedConfig struct {
	PageSize          int
	DecayHalfLife     time.Duration
	RecencyWeight     float64
	LikeWeight        float64
	CommentWeight     float64
	PersonalBoost     float64
	BoostBasic        float64
	BoostPremium      float64
	BoostFeatured     float64
	InteractionWindow time.Duration
	CandidateLimit    int
	FetchTimeout      time.Duration
	ImpressionTTL     time.Duration
	FollowingTTL      time.Duration
}

// DefaultFeedConfig возвращает веса по умолчанию.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PageSize:          5,
		DecayHalfLife:     24 * time.Hour,
		RecencyWeight:     100,
		LikeWeight:        2,
		CommentWeight:     3,
		PersonalBoost:     25,
		BoostBasic:        50,
		BoostPremium:      75,
		BoostFeatured:     100,
		InteractionWindow: 7 * 24 * time.Hour,
		CandidateLimit:    200,
		FetchTimeout:      5 * time.Second,
		ImpressionTTL:     30 * time.Minute,
		FollowingTTL:      time.Minute,
	}
}

// FeedPage — страница ленты.
type FeedPage struct {
	Items    []models.FeedItem `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	HasMore  bool              `json:"has_more"`
}

// FeedService ранжирует публикации: свежесть с экспоненциальным затуханием,
// вовлечённость, персонализация по недавним взаимодействиям зрителя и
// аддитивный буст оплаченных продвижений.
type FeedService struct {
	posts   FeedPostRepository
	follows FeedFollowRepository
	cache   *CacheService
	cfg     FeedConfig
	now     func() time.Time
}

// NewFeedService создаёт сервис ленты.
func NewFeedService(posts FeedPostRepository, follows FeedFollowRepository, cache *CacheService, cfg FeedConfig) *FeedService {
	if cfg.PageSize <= 0 {
		cfg = DefaultFeedConfig()
	}
	if cfg.FollowingTTL <= 0 {
		cfg.FollowingTTL = time.Minute
	}
	return &FeedService{
		posts:   posts,
		follows: follows,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
	}
}

// GetFeed возвращает страницу ленты зрителя. Взаимодействия и продвижения
// загружаются параллельно с ограничением по времени; недоступность
// продвижений деградирует до неоплаченного ранжирования, а не блокирует ленту.
// Показ продвижения учитывается один раз на сессию просмотра.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uuid.UUID, sessionID string, page int) (*FeedPage, error) {
	if page < 0 {
		page = 0
	}
	now := s.now()

	following, err := s.followingFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.posts.ListFeedCandidates(ctx, viewerID, following, s.cfg.CandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &FeedPage{Items: []models.FeedItem{}, Page: page, PageSize: s.cfg.PageSize}, nil
	}

	postIDs := make([]uuid.UUID, len(candidates))
	for i, p := range candidates {
		postIDs[i] = p.ID
	}

	interactions, promotions := s.fetchSignals(ctx, viewerID, postIDs, now)

	interactedAuthors := make(map[uuid.UUID]struct{}, len(interactions))
	for _, in := range interactions {
		interactedAuthors[in.AuthorID] = struct{}{}
	}

	promoByPost := make(map[uuid.UUID]models.PromotedPost, len(promotions))
	for _, promo := range promotions {
		promoByPost[promo.PostID] = promo
	}

	items := make([]models.FeedItem, 0, len(candidates))
	for _, post := range candidates {
		item := models.FeedItem{
			Post:      post,
			Content:   models.DecodePostContent(post.Content),
			BaseScore: s.baseScore(post, interactedAuthors, now),
		}
		item.Score = item.BaseScore
		if promo, ok := promoByPost[post.ID]; ok {
			promoID := promo.ID
			item.PromotionID = &promoID
			item.Tier = promo.Tier
			item.Score += s.tierBoost(promo.Tier)
		}
		items = append(items, item)
	}

	sortFeed(items)

	start := page * s.cfg.PageSize
	if start >= len(items) {
		return &FeedPage{Items: []models.FeedItem{}, Page: page, PageSize: s.cfg.PageSize}, nil
	}
	end := start + s.cfg.PageSize
	if end > len(items) {
		end = len(items)
	}
	pageItems := items[start:end]

	s.recordImpressions(ctx, viewerID, sessionID, pageItems)

	return &FeedPage{
		Items:    pageItems,
		Page:     page,
		PageSize: s.cfg.PageSize,
		HasMore:  len(pageItems) == s.cfg.PageSize,
	}, nil
}

// followingFor возвращает список подписок зрителя. Лента листается
// страницами, поэтому граф кэшируется на короткий срок; подписка и отписка
// сбрасывают кэш немедленно.
func (s *FeedService) followingFor(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	key := FollowingCacheKey(viewerID)
	if cached, ok := s.cache.Get(key); ok {
		if ids, ok := cached.([]uuid.UUID); ok {
			return ids, nil
		}
	}

	following, err := s.follows.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, following, s.cfg.FollowingTTL)
	return following, nil
}

// RecordPromotionClick учитывает переход по продвижению.
func (s *FeedService) RecordPromotionClick(ctx context.Context, promotionID uuid.UUID) error {
	return s.posts.RecordClick(ctx, promotionID)
}

// fetchSignals параллельно загружает взаимодействия зрителя и активные
// продвижения. Ошибка любой ветки деградирует до пустого сигнала.
func (s *FeedService) fetchSignals(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID, now time.Time) ([]models.ViewerInteraction, []models.PromotedPost) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var (
		wg           sync.WaitGroup
		interactions []models.ViewerInteraction
		promotions   []models.PromotedPost
		intErr       error
		promoErr     error
	)

	wg.Add(2)
	goroutine.SafeGo(func() {
		defer wg.Done()
		interactions, intErr = s.posts.ListViewerInteractions(fetchCtx, viewerID, now.Add(-s.cfg.InteractionWindow))
	})
	goroutine.SafeGo(func() {
		defer wg.Done()
		promotions, promoErr = s.posts.ListActivePromotions(fetchCtx, postIDs, now)
	})
	wg.Wait()

	if intErr != nil {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{"viewer_id": viewerID, "error": intErr.Error()}).
				Warn("feed service: персонализация недоступна")
		}
		interactions = nil
	}
	if promoErr != nil {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{"viewer_id": viewerID, "error": promoErr.Error()}).
				Warn("feed service: продвижения недоступны, лента без бустов")
		}
		promotions = nil
	}

	return interactions, promotions
}

// baseScore монотонен по свежести и вовлечённости и никогда не отрицателен.
func (s *FeedService) baseScore(post models.Post, interactedAuthors map[uuid.UUID]struct{}, now time.Time) float64 {
	age := now.Sub(post.CreatedAt)
	if age < 0 {
		age = 0
	}
	decay := math.Exp(-math.Ln2 * age.Hours() / s.cfg.DecayHalfLife.Hours())
	score := s.cfg.RecencyWeight * decay

	score += s.cfg.LikeWeight * float64(post.LikesCount)
	score += s.cfg.CommentWeight * float64(post.CommentsCount)

	if _, ok := interactedAuthors[post.UserID]; ok {
		score += s.cfg.PersonalBoost
	}

	if score < 0 {
		score = 0
	}
	return score
}

func (s *FeedService) tierBoost(tier string) float64 {
	switch tier {
	case models.PromotionTierFeatured:
		return s.cfg.BoostFeatured
	case models.PromotionTierPremium:
		return s.cfg.BoostPremium
	case models.PromotionTierBasic:
		return s.cfg.BoostBasic
	}
	return 0
}

// sortFeed упорядочивает выдачу: сначала продвигаемые по тиру
// (featured > premium > basic), внутри тира по baseScore; затем остальные
// по baseScore по убыванию.
func sortFeed(items []models.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].PromotionID != nil, items[j].PromotionID != nil
		if pi != pj {
			return pi
		}
		if pi && pj {
			wi, wj := models.PromotionTierWeight(items[i].Tier), models.PromotionTierWeight(items[j].Tier)
			if wi != wj {
				return wi > wj
			}
		}
		return items[i].BaseScore > items[j].BaseScore
	})
}

// recordImpressions учитывает показы продвижений на странице, не более
// одного на продвижение в рамках сессии просмотра. Best-effort.
func (s *FeedService) recordImpressions(ctx context.Context, viewerID uuid.UUID, sessionID string, items []models.FeedItem) {
	var fresh []uuid.UUID
	for _, item := range items {
		if item.PromotionID == nil {
			continue
		}
		key := ImpressionCacheKey(viewerID, sessionID, *item.PromotionID)
		if s.cache.SetNX(key, struct{}{}, s.cfg.ImpressionTTL) {
			fresh = append(fresh, *item.PromotionID)
		}
	}
	if len(fresh) == 0 {
		return
	}

	if err := s.posts.RecordImpressions(ctx, fresh); err != nil && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"viewer_id": viewerID,
			"error":     err.Error(),
		}).Warn("feed service: не удалось записать показы")
	}
}

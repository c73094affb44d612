package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/validation"
)

// Допустимые сроки продвижения публикации.
const (
	MinPromotionDuration = 24 * time.Hour
	MaxPromotionDuration = 30 * 24 * time.Hour
)

// PostStore описывает хранилище публикаций для сервиса.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	UpdateCaption(ctx context.Context, postID uuid.UUID, caption *string) (*models.Post, error)
	SoftDelete(ctx context.Context, postID uuid.UUID) error
	Like(ctx context.Context, postID, userID uuid.UUID) error
	Unlike(ctx context.Context, postID, userID uuid.UUID) error
	CreateComment(ctx context.Context, comment *models.PostComment) error
	ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.PostComment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Post, error)
	CreatePromotion(ctx context.Context, promo *models.PromotedPost) error
}

// PostService реализует публикации, реакции и покупку продвижений.
type PostService struct {
	store    PostStore
	notifier Notifier
	now      func() time.Time
}

// CreatePostInput — входные данные создания публикации.
type CreatePostInput struct {
	Caption   *string
	ImageURLs []string
	Text      string
}

// NewPostService создаёт сервис публикаций.
func NewPostService(store PostStore, notifier Notifier) *PostService {
	return &PostService{store: store, notifier: notifier, now: time.Now}
}

// CreatePost создаёт публикацию. Контент всегда записывается в тегированном
// формате: либо набор изображений, либо текст.
func (s *PostService) CreatePost(ctx context.Context, userID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	if err := validation.ValidateCaption(in.Caption); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if len(in.ImageURLs) == 0 && in.Text == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "публикация должна содержать изображения или текст")
	}

	var content models.PostContent
	if len(in.ImageURLs) > 0 {
		content = models.NewImageContent(in.ImageURLs)
	} else {
		content = models.NewTextContent(in.Text)
	}
	encoded, err := content.Encode()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать контент публикации")
	}

	post := &models.Post{
		UserID:  userID,
		Caption: in.Caption,
		Content: encoded,
	}
	if err := s.store.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost возвращает публикацию с декодированным контентом.
func (s *PostService) GetPost(ctx context.Context, postID uuid.UUID) (*models.Post, models.PostContent, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, models.PostContent{}, err
	}
	return post, models.DecodePostContent(post.Content), nil
}

// UpdateCaption меняет подпись публикации. Доступно только автору.
func (s *PostService) UpdateCaption(ctx context.Context, actorID, postID uuid.UUID, caption *string) (*models.Post, error) {
	if err := validation.ValidateCaption(caption); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.store.UpdateCaption(ctx, postID, caption)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, apperror.ErrPostNotFound
		}
		return nil, err
	}
	return updated, nil
}

// DeletePost мягко удаляет публикацию автора. Лайки и комментарии остаются,
// публикация пропадает из выдачи.
func (s *PostService) DeletePost(ctx context.Context, actorID uuid.UUID, actorRole string, postID uuid.UUID) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID && actorRole != models.RoleAdmin {
		return apperror.ErrForbidden
	}

	if err := s.store.SoftDelete(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return apperror.ErrPostNotFound
		}
		return err
	}
	return nil
}

// Like ставит лайк. Повторный лайк идемпотентен.
func (s *PostService) Like(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}

	if err := s.store.Like(ctx, postID, userID); err != nil {
		return err
	}

	if s.notifier != nil && post.UserID != userID {
		_ = s.notifier.Notify(ctx, &models.Notification{
			UserID:   post.UserID,
			ActorID:  &userID,
			Type:     models.NotificationPostLiked,
			EntityID: &postID,
			Message:  "Вашу публикацию оценили",
		})
	}
	return nil
}

// Unlike убирает лайк. Отсутствующий лайк — no-op.
func (s *PostService) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	if _, err := s.getPost(ctx, postID); err != nil {
		return err
	}
	return s.store.Unlike(ctx, postID, userID)
}

// AddComment добавляет комментарий к публикации.
func (s *PostService) AddComment(ctx context.Context, userID, postID uuid.UUID, content string) (*models.PostComment, error) {
	if err := validation.ValidateCommentContent(content); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.PostComment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.notifier != nil && post.UserID != userID {
		_ = s.notifier.Notify(ctx, &models.Notification{
			UserID:   post.UserID,
			ActorID:  &userID,
			Type:     models.NotificationPostCommented,
			EntityID: &postID,
			Message:  "К вашей публикации оставили комментарий",
		})
	}
	return comment, nil
}

// ListComments возвращает комментарии публикации.
func (s *PostService) ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.PostComment, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListComments(ctx, postID, limit, offset)
}

// ListByUser возвращает публикации автора.
func (s *PostService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// PromotePost покупает продвижение публикации. Доступно только автору;
// тир и окно действия проверяются до записи.
func (s *PostService) PromotePost(ctx context.Context, actorID, postID uuid.UUID, tier string, startsAt, endsAt time.Time) (*models.PromotedPost, error) {
	if _, ok := models.ValidPromotionTiers[tier]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный уровень продвижения")
	}

	now := s.now()
	if startsAt.IsZero() {
		startsAt = now
	}
	if !endsAt.After(startsAt) {
		return nil, apperror.New(apperror.ErrCodeValidation, "окончание продвижения должно быть позже начала")
	}
	if endsAt.Before(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "окно продвижения уже истекло")
	}
	duration := endsAt.Sub(startsAt)
	if duration < MinPromotionDuration || duration > MaxPromotionDuration {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок продвижения должен быть от 1 до 30 дней")
	}

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, apperror.ErrForbidden
	}

	promo := &models.PromotedPost{
		PostID:   postID,
		Tier:     tier,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
	if err := s.store.CreatePromotion(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *PostService) getPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post, err := s.store.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, apperror.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

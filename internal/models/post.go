package models

import (
	"time"

	"github.com/google/uuid"
)

// Post описывает публикацию в ленте.
// Content хранится в тегированном JSON формате (см. postcontent.go);
// legacy-строки из старого поля image_url декодируются при чтении.
type Post struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Caption       *string    `db:"caption" json:"caption,omitempty"`
	Content       string     `db:"content" json:"-"`
	LikesCount    int        `db:"likes_count" json:"likes_count"`
	CommentsCount int        `db:"comments_count" json:"comments_count"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// PostComment описывает комментарий к публикации.
type PostComment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PromotedPost описывает оплаченное продвижение публикации.
type PromotedPost struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PostID      uuid.UUID `db:"post_id" json:"post_id"`
	Tier        string    `db:"tier" json:"tier"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Impressions int       `db:"impressions" json:"impressions"`
	Clicks      int       `db:"clicks" json:"clicks"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActiveAt сообщает, активно ли продвижение в указанный момент.
func (p *PromotedPost) ActiveAt(now time.Time) bool {
	return !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// ViewerInteraction — недавнее взаимодействие зрителя (лайк/комментарий)
// для персонализации ранжирования.
type ViewerInteraction struct {
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeedItem — публикация с посчитанным скором для выдачи ленты.
type FeedItem struct {
	Post        Post        `json:"post"`
	Content     PostContent `json:"content"`
	BaseScore   float64     `json:"base_score"`
	Score       float64     `json:"score"`
	PromotionID *uuid.UUID  `json:"promotion_id,omitempty"`
	Tier        string      `json:"promotion_tier,omitempty"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

// ErrPostNotFound возвращается, когда публикация не найдена или удалена.
var ErrPostNotFound = errors.New("post not found")

// PostRepository отвечает за публикации, лайки, комментарии и продвижения.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository создаёт экземпляр репозитория.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create создаёт публикацию.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (user_id, caption, content)
		VALUES ($1, $2, $3)
		RETURNING id, likes_count, comments_count, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		post.UserID, post.Caption, post.Content,
	).Scan(&post.ID, &post.LikesCount, &post.CommentsCount, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return fmt.Errorf("post repository: create %w", err)
	}

	return nil
}

// GetByID возвращает публикацию, исключая мягко удалённые.
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `
		SELECT * FROM posts WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("post repository: get by id %w", err)
	}
	return &post, nil
}

// UpdateCaption меняет подпись публикации.
func (r *PostRepository) UpdateCaption(ctx context.Context, postID uuid.UUID, caption *string) (*models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `
		UPDATE posts SET caption = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, postID, caption)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("post repository: update caption %w", err)
	}
	return &post, nil
}

// SoftDelete помечает публикацию удалённой, физически запись сохраняется.
func (r *PostRepository) SoftDelete(ctx context.Context, postID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, postID)
	if err != nil {
		return fmt.Errorf("post repository: soft delete %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("post repository: soft delete rows affected %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Like ставит лайк и инкрементирует счётчик в одной транзакции.
// Повторный лайк — no-op.
func (r *PostRepository) Like(ctx context.Context, postID, userID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO post_likes (post_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (post_id, user_id) DO NOTHING
		`, postID, userID)
		if err != nil {
			return fmt.Errorf("post repository: like %w", err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("post repository: like rows affected %w", err)
		}
		if inserted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1
		`, postID); err != nil {
			return fmt.Errorf("post repository: like count %w", err)
		}
		return nil
	})
}

// Unlike убирает лайк и декрементирует счётчик.
func (r *PostRepository) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
		`, postID, userID)
		if err != nil {
			return fmt.Errorf("post repository: unlike %w", err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("post repository: unlike rows affected %w", err)
		}
		if deleted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1
		`, postID); err != nil {
			return fmt.Errorf("post repository: unlike count %w", err)
		}
		return nil
	})
}

// CreateComment создаёт комментарий и инкрементирует счётчик.
func (r *PostRepository) CreateComment(ctx context.Context, comment *models.PostComment) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO post_comments (post_id, user_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, comment.PostID, comment.UserID, comment.Content).Scan(&comment.ID, &comment.CreatedAt)
		if err != nil {
			return fmt.Errorf("post repository: create comment %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1
		`, comment.PostID); err != nil {
			return fmt.Errorf("post repository: comment count %w", err)
		}
		return nil
	})
}

// ListComments возвращает комментарии публикации.
func (r *PostRepository) ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.PostComment, error) {
	var comments []models.PostComment
	err := r.db.SelectContext(ctx, &comments, `
		SELECT * FROM post_comments WHERE post_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3
	`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("post repository: list comments %w", err)
	}
	return comments, nil
}

// ListFeedCandidates возвращает публикации авторов из списка плюс собственные,
// без мягко удалённых, свежие первыми. Кандидаты для ранжирования, поэтому
// окно берётся с запасом относительно страницы выдачи.
func (r *PostRepository) ListFeedCandidates(ctx context.Context, viewerID uuid.UUID, authorIDs []uuid.UUID, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE deleted_at IS NULL AND (user_id = $1 OR user_id = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3
	`, viewerID, pq.Array(authorIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("post repository: list feed candidates %w", err)
	}
	return posts, nil
}

// ListViewerInteractions возвращает недавние лайки и комментарии зрителя
// с авторами публикаций — вход персонализации ранжирования.
func (r *PostRepository) ListViewerInteractions(ctx context.Context, viewerID uuid.UUID, since time.Time) ([]models.ViewerInteraction, error) {
	var interactions []models.ViewerInteraction
	err := r.db.SelectContext(ctx, &interactions, `
		SELECT p.user_id AS author_id, 'like' AS kind, l.created_at
		FROM post_likes l
		JOIN posts p ON p.id = l.post_id
		WHERE l.user_id = $1 AND l.created_at >= $2
		UNION ALL
		SELECT p.user_id AS author_id, 'comment' AS kind, c.created_at
		FROM post_comments c
		JOIN posts p ON p.id = c.post_id
		WHERE c.user_id = $1 AND c.created_at >= $2
		ORDER BY created_at DESC
	`, viewerID, since)
	if err != nil {
		return nil, fmt.Errorf("post repository: list viewer interactions %w", err)
	}
	return interactions, nil
}

// CreatePromotion создаёт запись продвижения публикации.
func (r *PostRepository) CreatePromotion(ctx context.Context, promo *models.PromotedPost) error {
	query := `
		INSERT INTO promoted_posts (post_id, tier, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, impressions, clicks, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		promo.PostID, promo.Tier, promo.StartsAt, promo.EndsAt,
	).Scan(&promo.ID, &promo.Impressions, &promo.Clicks, &promo.CreatedAt); err != nil {
		return fmt.Errorf("post repository: create promotion %w", err)
	}

	return nil
}

// ListActivePromotions возвращает активные продвижения для набора публикаций.
// При пересечении окон у публикации берётся одно продвижение — с наибольшим
// тиром, затем с более поздним окончанием.
func (r *PostRepository) ListActivePromotions(ctx context.Context, postIDs []uuid.UUID, now time.Time) ([]models.PromotedPost, error) {
	var promos []models.PromotedPost
	err := r.db.SelectContext(ctx, &promos, `
		SELECT DISTINCT ON (post_id) *
		FROM promoted_posts
		WHERE post_id = ANY($1) AND starts_at <= $2 AND ends_at >= $2
		ORDER BY post_id,
			CASE tier WHEN 'featured' THEN 3 WHEN 'premium' THEN 2 ELSE 1 END DESC,
			ends_at DESC
	`, pq.Array(postIDs), now)
	if err != nil {
		return nil, fmt.Errorf("post repository: list active promotions %w", err)
	}
	return promos, nil
}

// RecordImpressions инкрементирует показы перечисленных продвижений.
func (r *PostRepository) RecordImpressions(ctx context.Context, promotionIDs []uuid.UUID) error {
	if len(promotionIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE promoted_posts SET impressions = impressions + 1 WHERE id = ANY($1)
	`, pq.Array(promotionIDs))
	if err != nil {
		return fmt.Errorf("post repository: record impressions %w", err)
	}
	return nil
}

// RecordClick инкрементирует счётчик переходов по продвижению.
func (r *PostRepository) RecordClick(ctx context.Context, promotionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE promoted_posts SET clicks = clicks + 1 WHERE id = $1
	`, promotionID)
	if err != nil {
		return fmt.Errorf("post repository: record click %w", err)
	}
	return nil
}

// ListByUser возвращает публикации автора.
func (r *PostRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("post repository: list by user %w", err)
	}
	return posts, nil
}

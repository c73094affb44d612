package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrPayoutAccountNotFound возвращается, когда у пользователя нет счёта для выплат.
var ErrPayoutAccountNotFound = errors.New("payout account not found")

// UserRepository отвечает за работу с таблицами users, profiles, user_sessions,
// follows и payout_accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя с базовым профилем.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// GetByUsername возвращает пользователя по имени без учёта регистра.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE LOWER(username) = LOWER($1)`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by username %w", err)
	}
	return &user, nil
}

// UsernameTakenBy проверяет, занято ли имя пользователя (без учёта регистра)
// кем-то, кроме excludeUserID. Только чтение, без побочных эффектов.
func (r *UserRepository) UsernameTakenBy(ctx context.Context, username string, excludeUserID uuid.UUID) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id != $2
		)
	`, username, excludeUserID)
	if err != nil {
		return false, fmt.Errorf("user repository: username taken %w", err)
	}
	return taken, nil
}

// UpdateUsername меняет имя пользователя.
func (r *UserRepository) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = $2, updated_at = NOW() WHERE id = $1
	`, userID, username)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("user repository: update username %w", err)
	}
	return nil
}

// UpdateRole обновляет роль пользователя.
func (r *UserRepository) UpdateRole(ctx context.Context, userID uuid.UUID, role string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
	`, userID, role)
	if err != nil {
		return fmt.Errorf("user repository: update role %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: update role rows affected %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertProfile создаёт или обновляет профиль пользователя.
// Счётчики подписок не перезаписываются — ими владеют Follow/Unfollow.
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, bio, location, photo_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			location = EXCLUDED.location,
			photo_id = EXCLUDED.photo_id,
			updated_at = NOW()
		RETURNING user_id, display_name, bio, location, photo_id, followers_count, following_count, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		profile.UserID, profile.DisplayName, profile.Bio, profile.Location, profile.PhotoID,
	).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.Location,
		&profile.PhotoID,
		&profile.FollowersCount,
		&profile.FollowingCount,
		&profile.UpdatedAt,
	); err != nil {
		return fmt.Errorf("user repository: upsert profile %w", err)
	}

	return nil
}

// GetProfile возвращает профиль пользователя.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return common.GetByField[models.Profile](ctx, r.db, "profiles", "user_id", userID, ErrUserNotFound)
}

// Follow создаёт ребро подписки и в той же транзакции инкрементирует
// денормализованные счётчики. Повторная подписка — no-op.
func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO follows (follower_id, followee_id)
			VALUES ($1, $2)
			ON CONFLICT (follower_id, followee_id) DO NOTHING
		`, followerID, followeeID)
		if err != nil {
			return fmt.Errorf("user repository: follow %w", err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("user repository: follow rows affected %w", err)
		}
		if inserted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE profiles SET followers_count = followers_count + 1, updated_at = NOW() WHERE user_id = $1
		`, followeeID); err != nil {
			return fmt.Errorf("user repository: follow followers count %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE profiles SET following_count = following_count + 1, updated_at = NOW() WHERE user_id = $1
		`, followerID); err != nil {
			return fmt.Errorf("user repository: follow following count %w", err)
		}
		return nil
	})
}

// Unfollow удаляет ребро подписки и декрементирует счётчики.
func (r *UserRepository) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2
		`, followerID, followeeID)
		if err != nil {
			return fmt.Errorf("user repository: unfollow %w", err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("user repository: unfollow rows affected %w", err)
		}
		if deleted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE profiles SET followers_count = GREATEST(followers_count - 1, 0), updated_at = NOW() WHERE user_id = $1
		`, followeeID); err != nil {
			return fmt.Errorf("user repository: unfollow followers count %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE profiles SET following_count = GREATEST(following_count - 1, 0), updated_at = NOW() WHERE user_id = $1
		`, followerID); err != nil {
			return fmt.Errorf("user repository: unfollow following count %w", err)
		}
		return nil
	})
}

// IsFollowing проверяет наличие подписки.
func (r *UserRepository) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	var following bool
	err := r.db.GetContext(ctx, &following, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)
	`, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("user repository: is following %w", err)
	}
	return following, nil
}

// ListFollowing возвращает идентификаторы пользователей, на которых подписан userID.
func (r *UserRepository) ListFollowing(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT followee_id FROM follows WHERE follower_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("user repository: list following %w", err)
	}
	return ids, nil
}

// ResyncFollowerCounts пересчитывает денормализованные счётчики подписок
// по рёбрам follows. Операция ремонта на случай дрейфа.
func (r *UserRepository) ResyncFollowerCounts(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `
		UPDATE profiles SET
			followers_count = (SELECT COUNT(*) FROM follows WHERE followee_id = $1),
			following_count = (SELECT COUNT(*) FROM follows WHERE follower_id = $1),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING *
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: resync follower counts %w", err)
	}
	return &profile, nil
}

// UpsertPayoutAccount сохраняет счёт для выплат.
func (r *UserRepository) UpsertPayoutAccount(ctx context.Context, account *models.PayoutAccount) error {
	query := `
		INSERT INTO payout_accounts (user_id, provider, external_account_id, verified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET provider = EXCLUDED.provider,
			external_account_id = EXCLUDED.external_account_id,
			verified = EXCLUDED.verified,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		account.UserID, account.Provider, account.ExternalAccountID, account.Verified,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: upsert payout account %w", err)
	}

	return nil
}

// GetPayoutAccount возвращает счёт пользователя для выплат.
func (r *UserRepository) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	return common.GetByField[models.PayoutAccount](ctx, r.db, "payout_accounts", "user_id", userID, ErrPayoutAccountNotFound)
}

// SetPayoutAccountVerified фиксирует результат внешней KYC-проверки.
func (r *UserRepository) SetPayoutAccountVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payout_accounts SET verified = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, verified)
	if err != nil {
		return fmt.Errorf("user repository: set payout verified %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: set payout verified rows affected %w", err)
	}
	if affected == 0 {
		return ErrPayoutAccountNotFound
	}
	return nil
}

// CreateSession сохраняет новую сессию пользователя.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID,
		session.RefreshToken,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// GetSessionByRefreshToken возвращает активную сессию по refresh токену.
func (r *UserRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM user_sessions WHERE refresh_token = $1 AND expires_at > NOW()
	`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// UpdateLastLoginAt обновляет время последнего входа пользователя.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: update last login at %w", err)
	}
	return nil
}

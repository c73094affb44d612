package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
	"github.com/jerryawoyele/markezon-backend/internal/validation"
)

// ProfileRepository описывает зависимости сервиса профилей.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTakenBy(ctx context.Context, username string, excludeUserID uuid.UUID) (bool, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	ResyncFollowerCounts(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertPayoutAccount(ctx context.Context, account *models.PayoutAccount) error
	GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error)
	SetPayoutAccountVerified(ctx context.Context, userID uuid.UUID, verified bool) error
}

// ProfileService содержит логику профилей, подписок и счетов для выплат.
type ProfileService struct {
	repo     ProfileRepository
	notifier Notifier
	cache    *CacheService
}

// UpdateProfileInput содержит изменяемые поля профиля.
type UpdateProfileInput struct {
	DisplayName string
	Bio         *string
	Location    *string
	PhotoID     *uuid.UUID
}

// NewProfileService создаёт сервис профилей.
func NewProfileService(repo ProfileRepository, notifier Notifier, cache *CacheService) *ProfileService {
	return &ProfileService{repo: repo, notifier: notifier, cache: cache}
}

// CheckUsername проверяет доступность имени пользователя без побочных
// эффектов. Сравнение без учёта регистра, собственное имя пользователя
// не считается занятым.
func (s *ProfileService) CheckUsername(ctx context.Context, username string, excludeUserID uuid.UUID) (models.UsernameAvailability, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return models.UsernameInvalid, nil
	}

	taken, err := s.repo.UsernameTakenBy(ctx, username, excludeUserID)
	if err != nil {
		return "", err
	}
	if taken {
		return models.UsernameTaken, nil
	}
	return models.UsernameAvailable, nil
}

// ChangeUsername меняет имя пользователя после проверки доступности.
func (s *ProfileService) ChangeUsername(ctx context.Context, userID uuid.UUID, username string) error {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	availability, err := s.CheckUsername(ctx, username, userID)
	if err != nil {
		return err
	}
	if availability == models.UsernameTaken {
		return apperror.New(apperror.ErrCodeConflict, "имя пользователя уже занято")
	}

	if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return apperror.New(apperror.ErrCodeConflict, "имя пользователя уже занято")
		}
		return err
	}
	return nil
}

// GetProfile возвращает профиль пользователя.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return profile, nil
}

// UpdateProfile обновляет профиль пользователя.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.Profile, error) {
	if err := validation.ValidateDisplayName(in.DisplayName); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBio(in.Bio); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLocation(in.Location); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		Location:    in.Location,
		PhotoID:     in.PhotoID,
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Follow подписывает followerID на followeeID. Счётчики обеих сторон
// меняются в одной транзакции с ребром подписки.
func (s *ProfileService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return apperror.New(apperror.ErrCodeValidation, "нельзя подписаться на самого себя")
	}

	if _, err := s.repo.GetByID(ctx, followeeID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}

	if err := s.repo.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}
	s.invalidateFollowing(followerID)

	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, &models.Notification{
			UserID:  followeeID,
			ActorID: &followerID,
			Type:    models.NotificationNewFollower,
			Message: "У вас новый подписчик",
		})
	}
	return nil
}

// Unfollow отменяет подписку.
func (s *ProfileService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return apperror.New(apperror.ErrCodeValidation, "нельзя отписаться от самого себя")
	}
	if err := s.repo.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	s.invalidateFollowing(followerID)
	return nil
}

// invalidateFollowing сбрасывает кэш списка подписок: лента должна увидеть
// изменение графа сразу, не дожидаясь истечения TTL.
func (s *ProfileService) invalidateFollowing(followerID uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(FollowingCacheKey(followerID))
	}
}

// IsFollowing проверяет наличие подписки.
func (s *ProfileService) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	return s.repo.IsFollowing(ctx, followerID, followeeID)
}

// ResyncFollowerCounts пересчитывает счётчики подписок по рёбрам.
// Операция ремонта на случай дрейфа денормализованных значений.
func (s *ProfileService) ResyncFollowerCounts(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.ResyncFollowerCounts(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return profile, nil
}

// RegisterPayoutAccount сохраняет счёт для выплат. Идентификатор счёта —
// непрозрачное значение платёжного провайдера; verified выставляется
// отдельно по результату KYC.
func (s *ProfileService) RegisterPayoutAccount(ctx context.Context, userID uuid.UUID, provider, externalAccountID string) (*models.PayoutAccount, error) {
	if err := validation.ValidateNonEmpty("провайдер", provider); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("идентификатор счёта", externalAccountID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	account := &models.PayoutAccount{
		UserID:            userID,
		Provider:          provider,
		ExternalAccountID: externalAccountID,
		Verified:          false,
	}
	if err := s.repo.UpsertPayoutAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ConfirmPayoutVerification фиксирует результат внешней KYC-проверки.
func (s *ProfileService) ConfirmPayoutVerification(ctx context.Context, userID uuid.UUID, verified bool) error {
	if err := s.repo.SetPayoutAccountVerified(ctx, userID, verified); err != nil {
		if errors.Is(err, repository.ErrPayoutAccountNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "счёт для выплат не найден")
		}
		return err
	}
	return nil
}

// GetPayoutAccount возвращает счёт пользователя.
func (s *ProfileService) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	account, err := s.repo.GetPayoutAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutAccountNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "счёт для выплат не найден")
		}
		return nil, err
	}
	return account, nil
}

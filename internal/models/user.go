package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile описывает публичный профиль пользователя.
// Счётчики подписок денормализованы и поддерживаются в одной транзакции
// с изменением рёбер follows.
type Profile struct {
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	DisplayName    string     `db:"display_name" json:"display_name"`
	Bio            *string    `db:"bio" json:"bio,omitempty"`
	Location       *string    `db:"location" json:"location,omitempty"`
	PhotoID        *uuid.UUID `db:"photo_id" json:"photo_id,omitempty"`
	FollowersCount int        `db:"followers_count" json:"followers_count"`
	FollowingCount int        `db:"following_count" json:"following_count"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Follow представляет ребро подписки.
type Follow struct {
	FollowerID uuid.UUID `db:"follower_id" json:"follower_id"`
	FolloweeID uuid.UUID `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PayoutAccount описывает счёт исполнителя для выплат.
// ExternalAccountID — непрозрачный идентификатор из платёжного провайдера,
// Verified выставляется по результату внешней KYC-проверки.
type PayoutAccount struct {
	ID                uuid.UUID `db:"id" json:"id"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	Provider          string    `db:"provider" json:"provider"`
	ExternalAccountID string    `db:"external_account_id" json:"external_account_id"`
	Verified          bool      `db:"verified" json:"verified"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// UsernameAvailability результат проверки доступности имени пользователя.
type UsernameAvailability string

const (
	UsernameAvailable UsernameAvailability = "available"
	UsernameTaken     UsernameAvailability = "taken"
	UsernameInvalid   UsernameAvailability = "invalid"
)

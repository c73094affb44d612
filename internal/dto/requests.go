package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents the request to update the profile
type UpdateProfileRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	PhotoID     *string `json:"photo_id"`
}

// ChangeUsernameRequest represents the request to change the username
type ChangeUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// RegisterPayoutAccountRequest represents the request to register a payout account
type RegisterPayoutAccountRequest struct {
	Provider          string `json:"provider" binding:"required"`
	ExternalAccountID string `json:"external_account_id" binding:"required"`
}

// VerifyPayoutAccountRequest represents the admin request to set payout verification
type VerifyPayoutAccountRequest struct {
	Verified bool `json:"verified"`
}

// CreateServiceRequest represents the request to create a service listing
type CreateServiceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	PhotoID     *string `json:"photo_id"`
}

// UpdateServiceRequest represents the request to update a service listing
type UpdateServiceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	PhotoID     *string `json:"photo_id"`
	IsActive    *bool   `json:"is_active"`
}

// CreateBookingRequest represents the request to book a service
type CreateBookingRequest struct {
	ServiceID     uuid.UUID `json:"service_id" binding:"required"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	Location      *string   `json:"location"`
	Notes         *string   `json:"notes"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	Reason  string  `json:"reason" binding:"required"`
	Details *string `json:"details"`
}

// ResolveDisputeRequest represents the admin request to resolve a dispute
type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// CreatePostRequest represents the request to create a post
type CreatePostRequest struct {
	Caption   *string  `json:"caption"`
	ImageURLs []string `json:"image_urls"`
	Text      string   `json:"text"`
}

// UpdatePostRequest represents the request to update a post caption
type UpdatePostRequest struct {
	Caption *string `json:"caption"`
}

// CreateCommentRequest represents the request to comment on a post
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// PromotePostRequest represents the request to purchase a promotion
type PromotePostRequest struct {
	Tier     string    `json:"tier" binding:"required"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

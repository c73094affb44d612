package dto

import (
	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/service"
)

// ErrorResponse represents a standardized error payload
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standardized success payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse represents the result of registration or login
type AuthResponse struct {
	User    *models.User       `json:"user"`
	Profile *models.Profile    `json:"profile,omitempty"`
	Tokens  *service.TokenPair `json:"tokens"`
}

// NewAuthResponse creates an AuthResponse from the service result
func NewAuthResponse(result *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:    result.User,
		Profile: result.Profile,
		Tokens:  result.TokenPair,
	}
}

// UsernameAvailabilityResponse represents the username check result
type UsernameAvailabilityResponse struct {
	Username string                      `json:"username"`
	Status   models.UsernameAvailability `json:"status"`
}

// BookingResponse represents a booking with its escrow payment
type BookingResponse struct {
	*models.Booking
	Escrow *models.EscrowPayment `json:"escrow,omitempty"`
}

// PostResponse represents a post with decoded content
type PostResponse struct {
	*models.Post
	Content models.PostContent `json:"content"`
}

// NewPostResponse creates a PostResponse with decoded content
func NewPostResponse(post *models.Post) *PostResponse {
	return &PostResponse{
		Post:    post,
		Content: models.DecodePostContent(post.Content),
	}
}

// MediaResponse represents an uploaded media file with its public URL
type MediaResponse struct {
	*models.MediaFile
	URL string `json:"url"`
}

// NewMediaResponse creates a MediaResponse from a media file
func NewMediaResponse(media *models.MediaFile) *MediaResponse {
	return &MediaResponse{MediaFile: media, URL: media.URL()}
}

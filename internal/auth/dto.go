package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/stackfinderz-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the public sign-up payload. Role is never accepted from input.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token; the expired access token travels in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and user produced by login or registration.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ProfileResponse is the caller's account with the ids of bookmarked stacks.
type ProfileResponse struct {
	User      *users.UserDTO `json:"user"`
	Bookmarks []uuid.UUID    `json:"bookmarks"`
}

package dto

import (
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Provider  *string   `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse is returned by signup, login, refresh and OAuth callbacks
type AuthResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    uint64    `json:"session_id"`
	User         UserDTO   `json:"user"`
}

// OAuthStateResponse carries the state to echo back on the callback
type OAuthStateResponse struct {
	Provider         string `json:"provider"`
	State            string `json:"state"`
	AuthorizationURL string `json:"authorization_url"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
	}
}

// ToAuthResponse converts a service AuthResult to AuthResponse
func ToAuthResponse(result *services.AuthResult) AuthResponse {
	return AuthResponse{
		Token:        result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresAt:    result.Tokens.ExpiresAt,
		SessionID:    result.Session.ID,
		User:         ToUserDTO(*result.User),
	}
}

package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest selects an identity by role or explicit user id.
type LoginRequest struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is a directory entry.
type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
	Email string      `json:"email,omitempty"`
}

func NewUserResponse(user domain.User) UserResponse {
	return UserResponse{ID: user.ID, Name: user.Name, Role: user.Role, Email: user.Email}
}

func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

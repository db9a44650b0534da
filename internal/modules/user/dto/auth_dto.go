package dto

import (
	"time"

	"anoa.com/innoliber/internal/entity"
)

type RegisterRequest struct {
	Email         string  `json:"email" binding:"required,email,max=100"`
	Password      string  `json:"password" binding:"required,min=8,max=100"`
	FullName      string  `json:"full_name" binding:"required,min=1,max=100"`
	ResearchField *string `json:"research_field" binding:"omitempty,max=100"`
}

// LoginRequest follows the OAuth2 password form: username carries the email.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserResponse struct {
	ID            uint       `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	AvatarURL     *string    `json:"avatar_url"`
	Institution   *string    `json:"institution"`
	Department    *string    `json:"department"`
	Position      *string    `json:"position"`
	ResearchField *string    `json:"research_field"`
	IsActive      bool       `json:"is_active"`
	IsSuperuser   bool       `json:"is_superuser"`
	EmailVerified bool       `json:"email_verified"`
	IsEduEmail    bool       `json:"is_edu_email"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login"`
}

func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		Institution:   u.Institution,
		Department:    u.Department,
		Position:      u.Position,
		ResearchField: u.ResearchField,
		IsActive:      u.IsActive,
		IsSuperuser:   u.IsSuperuser,
		EmailVerified: u.EmailVerified,
		IsEduEmail:    u.IsEduEmail,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
}

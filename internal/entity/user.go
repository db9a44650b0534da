package entity

import (
	"time"
)

type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Username            string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email               string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash        string     `gorm:"size:255;not null" json:"-"`
	FullName            string     `gorm:"size:100;not null" json:"full_name"`
	AvatarURL           *string    `gorm:"size:255" json:"avatar_url,omitempty"`
	Institution         *string    `gorm:"size:200" json:"institution,omitempty"`
	Department          *string    `gorm:"size:100" json:"department,omitempty"`
	Position            *string    `gorm:"size:50" json:"position,omitempty"`
	Phone               *string    `gorm:"size:20" json:"phone,omitempty"`
	ResearchField       *string    `gorm:"size:100" json:"research_field,omitempty"`
	IsActive            bool       `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser         bool       `gorm:"not null;default:false" json:"is_superuser"`
	EmailVerified       bool       `gorm:"not null;default:false" json:"email_verified"`
	IsEduEmail          bool       `gorm:"not null;default:false" json:"is_edu_email"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	Proposals           []Proposal `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

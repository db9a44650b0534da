package bootstrap

import (
	"context"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/pkg/logger"
	"anoa.com/innoliber/pkg/password"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	devUserEmail    = "demo@innoliber.edu.cn"
	devUserPassword = "demo12345"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Proposal{},
	)
}

// SeedDevUser creates a login for local development. It is a no-op when the user exists.
func SeedDevUser(ctx context.Context, db *gorm.DB, hasher password.Hasher) error {
	log := logger.FromContext(ctx)

	var count int64
	if err := db.WithContext(ctx).Model(&entity.User{}).
		Where("email = ?", devUserEmail).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Info("development user already exists, skipping seed")
		return nil
	}

	hashed, err := hasher.Hash(devUserPassword)
	if err != nil {
		return err
	}

	field := "Computer Science"
	user := entity.User{
		Username:      "demo",
		Email:         devUserEmail,
		PasswordHash:  hashed,
		FullName:      "Demo Researcher",
		ResearchField: &field,
		IsActive:      true,
		IsEduEmail:    true,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}

	log.Info("development user seeded",
		zap.String("email", devUserEmail),
		zap.String("password", devUserPassword),
	)
	return nil
}

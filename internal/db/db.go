package db

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brandlover88/brandlover-backend/internal/models"
	"github.com/brandlover88/brandlover-backend/internal/utils"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

// SeedAdmin creates the initial admin account when the users table is empty.
// Email/password come from ADMIN_EMAIL / ADMIN_PASSWORD; skipped when unset.
func SeedAdmin(gdb *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := gdb.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:       uuid.New(),
		Name:     "Brand Lover",
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := gdb.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("seeded admin account %s", email)
	return nil
}

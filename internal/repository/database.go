package repository

import (
	"errors"
	"fmt"
	"os"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Chat{},
		&models.ChatMember{},
		&models.Message{},
		&models.MessageReact{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.PushToken{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

// translate maps driver-level lookup misses onto the shared taxonomy so the
// service layer never has to know about gorm sentinels.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

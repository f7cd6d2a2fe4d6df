package repository

import (
	"errors"

	"github.com/sethshivam11/social-media-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetOrDefault never reports NotFound: a user without a stored row gets the
// defaults (all toggles on, no tokens). The row is only created when the
// user first registers a token or changes a toggle.
func (r *PreferenceRepository) GetOrDefault(userID uint) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := r.db.Preload("Tokens").First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultPreference(userID), nil
		}
		return nil, err
	}
	return &pref, nil
}

func (r *PreferenceRepository) Upsert(pref *models.NotificationPreference) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"new_messages", "group_activity", "reactions", "updated_at"}),
	}).Create(pref).Error
}

// AddToken registers a push endpoint. Re-registering an existing token is a
// no-op (the composite key forbids duplicates). The preference row is
// created lazily alongside the first token.
func (r *PreferenceRepository) AddToken(token *models.PushToken) (bool, error) {
	var added bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(models.DefaultPreference(token.UserID)).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(token)
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, err
}

func (r *PreferenceRepository) RemoveToken(userID uint, token string) (int64, error) {
	res := r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&models.PushToken{})
	return res.RowsAffected, res.Error
}

func (r *PreferenceRepository) ListTokens(userID uint) ([]models.PushToken, error) {
	var tokens []models.PushToken
	err := r.db.Where("user_id = ?", userID).Find(&tokens).Error
	return tokens, err
}

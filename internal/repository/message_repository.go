package repository

import (
	"github.com/sethshivam11/social-media-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.Preload("Reacts").First(&message, id).Error; err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// ListByChat pages newest-first; a non-zero cursor returns messages older
// than the cursor id.
func (r *MessageRepository) ListByChat(chatID uint, cursor uint, limit int) ([]models.Message, error) {
	q := r.db.Where("chat_id = ?", chatID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var messages []models.Message
	err := q.Preload("Reacts").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) UpdateContent(id uint, content string) error {
	res := r.db.Model(&models.Message{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *MessageRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.MessageReact{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
}

// ListAttachmentKeys returns the object-storage keys of every media message
// in the chat so a cascade delete can release them.
func (r *MessageRepository) ListAttachmentKeys(chatID uint) ([]string, error) {
	var keys []string
	err := r.db.Model(&models.Message{}).
		Where("chat_id = ? AND attachment_key <> ''", chatID).
		Pluck("attachment_key", &keys).Error
	return keys, err
}

// UpsertReact stores at most one reaction per (message, user). A repeated
// reaction from the same user replaces the content in the same row, in one
// statement, so concurrent reacts cannot produce duplicates.
func (r *MessageRepository) UpsertReact(react *models.MessageReact) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "created_at"}),
	}).Create(react).Error
}

func (r *MessageRepository) DeleteReact(messageID, userID uint) (int64, error) {
	res := r.db.Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.MessageReact{})
	return res.RowsAffected, res.Error
}

package repository

import (
	"github.com/sethshivam11/social-media-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// WithTx runs fn against a repository bound to a single transaction. Any
// error rolls the whole mutation back, so a rejected lifecycle operation
// leaves no partial state behind.
func (r *ChatRepository) WithTx(fn func(tx ChatRepositoryInterface) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ChatRepository{db: tx})
	})
}

func (r *ChatRepository) Create(chat *models.Chat) error {
	return r.db.Create(chat).Error
}

func (r *ChatRepository) FindByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, user_id ASC")
		}).
		First(&chat, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

// FindDirect returns the non-group chat containing exactly the two users.
func (r *ChatRepository) FindDirect(userA, userB uint) (*models.Chat, error) {
	var chatID uint
	err := r.db.Model(&models.ChatMember{}).
		Select("chat_members.chat_id").
		Joins("JOIN chats ON chats.id = chat_members.chat_id AND chats.is_group = false AND chats.deleted_at IS NULL").
		Where("chat_members.user_id IN ?", []uint{userA, userB}).
		Group("chat_members.chat_id").
		Having("COUNT(DISTINCT chat_members.user_id) = 2").
		Limit(1).
		Scan(&chatID).Error
	if err != nil {
		return nil, translate(err)
	}
	if chatID == 0 {
		return nil, translate(gorm.ErrRecordNotFound)
	}
	return r.FindByID(chatID)
}

func (r *ChatRepository) FindForUser(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ?", userID).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, user_id ASC")
		}).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}

// AddMembers inserts membership rows in one statement; ids that are already
// members are skipped by ON CONFLICT DO NOTHING. Returns how many rows were
// actually inserted.
func (r *ChatRepository) AddMembers(chatID uint, userIDs []uint, role models.ChatRole) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	members := make([]models.ChatMember, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, models.ChatMember{ChatID: chatID, UserID: id, Role: role})
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&members)
	return res.RowsAffected, res.Error
}

func (r *ChatRepository) RemoveMembers(chatID uint, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := r.db.Where("chat_id = ? AND user_id IN ?", chatID, userIDs).Delete(&models.ChatMember{})
	return res.RowsAffected, res.Error
}

// SetRole flips a member's role in place; rows affected is 0 when the user
// is not a member.
func (r *ChatRepository) SetRole(chatID, userID uint, role models.ChatRole) (int64, error) {
	res := r.db.Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("role", role)
	return res.RowsAffected, res.Error
}

func (r *ChatRepository) SetLastMessage(chatID uint, messageID uint) error {
	return r.db.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("last_message_id", messageID).Error
}

// ClearLastMessageIf nulls the pointer only when it still targets messageID,
// so a concurrent newer send is never clobbered.
func (r *ChatRepository) ClearLastMessageIf(chatID, messageID uint) error {
	return r.db.Model(&models.Chat{}).
		Where("id = ? AND last_message_id = ?", chatID, messageID).
		Update("last_message_id", nil).Error
}

func (r *ChatRepository) UpdateDetails(chatID uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Chat{}).Where("id = ?", chatID).Updates(updates).Error
}

// Delete removes the chat together with its membership rows, messages and
// reactions. Attachment release is the caller's job (the keys live in
// object storage, not here).
func (r *ChatRepository) Delete(chatID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&models.Message{}).Select("id").Where("chat_id = ?", chatID),
		).Delete(&models.MessageReact{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.ChatMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Chat{}, chatID).Error
	})
}

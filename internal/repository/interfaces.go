package repository

import (
	"github.com/sethshivam11/social-media-backend/internal/models"
)

// ChatRepositoryInterface defines the contract for chat store operations
type ChatRepositoryInterface interface {
	WithTx(fn func(tx ChatRepositoryInterface) error) error
	Create(chat *models.Chat) error
	FindByID(id uint) (*models.Chat, error)
	FindDirect(userA, userB uint) (*models.Chat, error)
	FindForUser(userID uint) ([]models.Chat, error)
	AddMembers(chatID uint, userIDs []uint, role models.ChatRole) (int64, error)
	RemoveMembers(chatID uint, userIDs []uint) (int64, error)
	SetRole(chatID, userID uint, role models.ChatRole) (int64, error)
	SetLastMessage(chatID uint, messageID uint) error
	ClearLastMessageIf(chatID, messageID uint) error
	UpdateDetails(chatID uint, updates map[string]interface{}) error
	Delete(chatID uint) error
}

// MessageRepositoryInterface defines the contract for message store operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	ListByChat(chatID uint, cursor uint, limit int) ([]models.Message, error)
	UpdateContent(id uint, content string) error
	Delete(id uint) error
	ListAttachmentKeys(chatID uint) ([]string, error)
	UpsertReact(react *models.MessageReact) error
	DeleteReact(messageID, userID uint) (int64, error)
}

// NotificationRepositoryInterface defines the contract for durable notification records
type NotificationRepositoryInterface interface {
	Create(n *models.Notification) error
	ListForUser(userID uint, cursor uint, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(userID uint, ids []uint) (int64, error)
	MarkAllRead(userID uint) (int64, error)
}

// PreferenceRepositoryInterface defines the contract for notification preferences and push tokens
type PreferenceRepositoryInterface interface {
	GetOrDefault(userID uint) (*models.NotificationPreference, error)
	Upsert(pref *models.NotificationPreference) error
	AddToken(token *models.PushToken) (bool, error)
	RemoveToken(userID uint, token string) (int64, error)
	ListTokens(userID uint) ([]models.PushToken, error)
}

package cache

import (
	"fmt"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ChatPageTTL bounds how stale the newest-page cache can get if an
// invalidation is lost.
const ChatPageTTL = 5 * time.Minute

// MessageCache holds the newest page of each chat's history. Every message
// mutation in the chat invalidates the page. A nil cache is a no-op.
type MessageCache struct {
	redis *RedisCache
}

func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func chatPageKey(chatID uint) string {
	return fmt.Sprintf("chatpage:%d", chatID)
}

// GetChatPage retrieves the cached newest page for a chat.
func (mc *MessageCache) GetChatPage(chatID uint) ([]models.Message, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(chatPageKey(chatID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetChatPage caches the newest page for a chat.
func (mc *MessageCache) SetChatPage(chatID uint, messages []models.Message) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return mc.redis.Set(chatPageKey(chatID), data, ChatPageTTL)
}

// InvalidateChat drops the cached page after any message mutation.
func (mc *MessageCache) InvalidateChat(chatID uint) {
	if mc == nil || mc.redis == nil {
		return
	}
	_ = mc.redis.Delete(chatPageKey(chatID))
}

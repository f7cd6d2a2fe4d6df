package service

import (
	"time"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/repository"
)

// MockChatRepository is an in-memory implementation of
// repository.ChatRepositoryInterface for tests.
type MockChatRepository struct {
	chats  map[uint]*models.Chat
	nextID uint
	// joinSeq keeps membership order deterministic without sleeping.
	joinSeq time.Duration
}

func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{
		chats:  make(map[uint]*models.Chat),
		nextID: 1,
	}
}

func (m *MockChatRepository) nextJoinTime() time.Time {
	m.joinSeq += time.Second
	return time.Unix(0, 0).Add(m.joinSeq)
}

func (m *MockChatRepository) WithTx(fn func(tx repository.ChatRepositoryInterface) error) error {
	return fn(m)
}

func (m *MockChatRepository) Create(chat *models.Chat) error {
	if chat.ID == 0 {
		chat.ID = m.nextID
		m.nextID++
	}
	for i := range chat.Members {
		chat.Members[i].ChatID = chat.ID
		if chat.Members[i].JoinedAt.IsZero() {
			chat.Members[i].JoinedAt = m.nextJoinTime()
		}
	}
	m.chats[chat.ID] = chat
	return nil
}

// snapshotChat copies the stored row so callers see a load, not a live
// reference that later mutations would change underneath them.
func snapshotChat(c *models.Chat) *models.Chat {
	out := *c
	out.Members = append([]models.ChatMember(nil), c.Members...)
	return &out
}

func (m *MockChatRepository) FindByID(id uint) (*models.Chat, error) {
	if c, ok := m.chats[id]; ok {
		return snapshotChat(c), nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MockChatRepository) FindDirect(userA, userB uint) (*models.Chat, error) {
	for _, c := range m.chats {
		if c.IsGroup || len(c.Members) != 2 {
			continue
		}
		if c.HasMember(userA) && c.HasMember(userB) {
			return snapshotChat(c), nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *MockChatRepository) FindForUser(userID uint) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range m.chats {
		if c.HasMember(userID) {
			out = append(out, *snapshotChat(c))
		}
	}
	return out, nil
}

func (m *MockChatRepository) AddMembers(chatID uint, userIDs []uint, role models.ChatRole) (int64, error) {
	c, ok := m.chats[chatID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	var added int64
	for _, id := range userIDs {
		if c.HasMember(id) {
			continue
		}
		c.Members = append(c.Members, models.ChatMember{
			ChatID:   chatID,
			UserID:   id,
			Role:     role,
			JoinedAt: m.nextJoinTime(),
		})
		added++
	}
	return added, nil
}

func (m *MockChatRepository) RemoveMembers(chatID uint, userIDs []uint) (int64, error) {
	c, ok := m.chats[chatID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	drop := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		drop[id] = true
	}
	var removed int64
	kept := c.Members[:0]
	for _, member := range c.Members {
		if drop[member.UserID] {
			removed++
			continue
		}
		kept = append(kept, member)
	}
	c.Members = kept
	return removed, nil
}

func (m *MockChatRepository) SetRole(chatID, userID uint, role models.ChatRole) (int64, error) {
	c, ok := m.chats[chatID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			c.Members[i].Role = role
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockChatRepository) SetLastMessage(chatID uint, messageID uint) error {
	c, ok := m.chats[chatID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.LastMessageID = &messageID
	return nil
}

func (m *MockChatRepository) ClearLastMessageIf(chatID, messageID uint) error {
	c, ok := m.chats[chatID]
	if !ok {
		return apperr.ErrNotFound
	}
	if c.LastMessageID != nil && *c.LastMessageID == messageID {
		c.LastMessageID = nil
	}
	return nil
}

func (m *MockChatRepository) UpdateDetails(chatID uint, updates map[string]interface{}) error {
	c, ok := m.chats[chatID]
	if !ok {
		return apperr.ErrNotFound
	}
	if v, ok := updates["group_name"].(string); ok {
		c.GroupName = v
	}
	if v, ok := updates["group_description"].(string); ok {
		c.GroupDescription = v
	}
	if v, ok := updates["group_icon"].(string); ok {
		c.GroupIcon = v
	}
	return nil
}

func (m *MockChatRepository) Delete(chatID uint) error {
	if _, ok := m.chats[chatID]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.chats, chatID)
	return nil
}

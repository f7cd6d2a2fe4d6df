package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/models"
)

// MockMessageRepository is an in-memory implementation of
// repository.MessageRepositoryInterface for tests.
type MockMessageRepository struct {
	messages map[uint]*models.Message
	reacts   map[uint]map[uint]*models.MessageReact
	nextID   uint
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		reacts:   make(map[uint]map[uint]*models.MessageReact),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	msg.Reacts = msg.Reacts[:0]
	for _, r := range m.reacts[id] {
		msg.Reacts = append(msg.Reacts, *r)
	}
	return msg, nil
}

func (m *MockMessageRepository) ListByChat(chatID uint, cursor uint, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ChatID != chatID {
			continue
		}
		if cursor > 0 && msg.ID >= cursor {
			continue
		}
		out = append(out, *msg)
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockMessageRepository) UpdateContent(id uint, content string) error {
	msg, ok := m.messages[id]
	if !ok {
		return apperr.ErrNotFound
	}
	msg.Content = content
	return nil
}

func (m *MockMessageRepository) Delete(id uint) error {
	if _, ok := m.messages[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.messages, id)
	delete(m.reacts, id)
	return nil
}

func (m *MockMessageRepository) ListAttachmentKeys(chatID uint) ([]string, error) {
	var keys []string
	for _, msg := range m.messages {
		if msg.ChatID == chatID && msg.AttachmentKey != "" {
			keys = append(keys, msg.AttachmentKey)
		}
	}
	return keys, nil
}

func (m *MockMessageRepository) UpsertReact(react *models.MessageReact) error {
	if _, ok := m.messages[react.MessageID]; !ok {
		return apperr.ErrNotFound
	}
	if m.reacts[react.MessageID] == nil {
		m.reacts[react.MessageID] = make(map[uint]*models.MessageReact)
	}
	m.reacts[react.MessageID][react.UserID] = react
	return nil
}

func (m *MockMessageRepository) DeleteReact(messageID, userID uint) (int64, error) {
	if rr, ok := m.reacts[messageID]; ok {
		if _, ok := rr[userID]; ok {
			delete(rr, userID)
			return 1, nil
		}
	}
	return 0, nil
}

// FakeObjectRemover records released keys. releaseAttachment runs on a
// goroutine, so reads go through WaitForDelete.
type FakeObjectRemover struct {
	mu      sync.Mutex
	deleted []string
	done    chan struct{}
}

func NewFakeObjectRemover() *FakeObjectRemover {
	return &FakeObjectRemover{done: make(chan struct{}, 8)}
}

func (f *FakeObjectRemover) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, key)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *FakeObjectRemover) WaitForDelete(t *testing.T) string {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for object release")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[len(f.deleted)-1]
}

func (f *FakeObjectRemover) DeletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

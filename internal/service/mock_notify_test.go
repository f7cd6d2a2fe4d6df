package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/push"
)

// MockNotificationRepository is an in-memory implementation of
// repository.NotificationRepositoryInterface for tests.
type MockNotificationRepository struct {
	notifications map[uint]*models.Notification
	nextID        uint
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[uint]*models.Notification),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if n.ID == 0 {
		n.ID = m.nextID
		m.nextID++
	}
	m.notifications[n.ID] = n
	return nil
}

func (m *MockNotificationRepository) ListForUser(userID uint, cursor uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if cursor > 0 && n.ID >= cursor {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) MarkRead(userID uint, ids []uint) (int64, error) {
	var updated int64
	for _, id := range ids {
		if n, ok := m.notifications[id]; ok && n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (m *MockNotificationRepository) MarkAllRead(userID uint) (int64, error) {
	var updated int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

// MockPreferenceRepository is an in-memory implementation of
// repository.PreferenceRepositoryInterface for tests.
type MockPreferenceRepository struct {
	prefs  map[uint]*models.NotificationPreference
	tokens map[uint]map[string]*models.PushToken
}

func NewMockPreferenceRepository() *MockPreferenceRepository {
	return &MockPreferenceRepository{
		prefs:  make(map[uint]*models.NotificationPreference),
		tokens: make(map[uint]map[string]*models.PushToken),
	}
}

func (m *MockPreferenceRepository) GetOrDefault(userID uint) (*models.NotificationPreference, error) {
	if p, ok := m.prefs[userID]; ok {
		return p, nil
	}
	return models.DefaultPreference(userID), nil
}

func (m *MockPreferenceRepository) Upsert(pref *models.NotificationPreference) error {
	m.prefs[pref.UserID] = pref
	return nil
}

func (m *MockPreferenceRepository) AddToken(token *models.PushToken) (bool, error) {
	if m.tokens[token.UserID] == nil {
		m.tokens[token.UserID] = make(map[string]*models.PushToken)
	}
	if _, exists := m.tokens[token.UserID][token.Token]; exists {
		return false, nil
	}
	m.tokens[token.UserID][token.Token] = token
	return true, nil
}

func (m *MockPreferenceRepository) RemoveToken(userID uint, token string) (int64, error) {
	if tt, ok := m.tokens[userID]; ok {
		if _, ok := tt[token]; ok {
			delete(tt, token)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockPreferenceRepository) ListTokens(userID uint) ([]models.PushToken, error) {
	var out []models.PushToken
	for _, t := range m.tokens[userID] {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

// FakeGateway records socket emissions instead of writing frames.
type FakeGateway struct {
	online  map[uint]bool
	emitted []EmittedEvent
}

type EmittedEvent struct {
	UserID uint
	Event  string
}

func NewFakeGateway(onlineUsers ...uint) *FakeGateway {
	online := make(map[uint]bool, len(onlineUsers))
	for _, id := range onlineUsers {
		online[id] = true
	}
	return &FakeGateway{online: online}
}

func (g *FakeGateway) IsOnline(userID uint) bool { return g.online[userID] }

func (g *FakeGateway) EmitToUser(userID uint, event string, payload interface{}) {
	g.emitted = append(g.emitted, EmittedEvent{UserID: userID, Event: event})
}

func (g *FakeGateway) EmitsTo(userID uint, event string) int {
	count := 0
	for _, e := range g.emitted {
		if e.UserID == userID && e.Event == event {
			count++
		}
	}
	return count
}

// FakePushSender records push attempts and can fail specific tokens.
// Sends happen concurrently, hence the mutex.
type FakePushSender struct {
	mu      sync.Mutex
	sent    []string
	failing map[string]error
}

func NewFakePushSender() *FakePushSender {
	return &FakePushSender{failing: make(map[string]error)}
}

func (s *FakePushSender) FailToken(token string, err error) {
	s.failing[token] = err
}

func (s *FakePushSender) Send(ctx context.Context, token string, p push.Payload) error {
	s.mu.Lock()
	s.sent = append(s.sent, token)
	s.mu.Unlock()
	if err, ok := s.failing[token]; ok {
		return err
	}
	return nil
}

func (s *FakePushSender) SentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

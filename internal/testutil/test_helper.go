package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestChat builds a group chat with the given members; the first id
// is the admin, the rest join one second apart so membership order is fixed.
func (h *TestHelper) CreateTestChat(id uint, memberIDs ...uint) *models.Chat {
	if id == 0 {
		id = 1
	}
	if len(memberIDs) == 0 {
		memberIDs = []uint{1, 2}
	}

	base := time.Now().Add(-time.Hour)
	members := make([]models.ChatMember, 0, len(memberIDs))
	for i, userID := range memberIDs {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		members = append(members, models.ChatMember{
			ChatID:   id,
			UserID:   userID,
			Role:     role,
			JoinedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	return &models.Chat{
		ID:        id,
		IsGroup:   true,
		GroupName: "Test Group",
		GroupIcon: models.DefaultGroupIcon,
		Members:   members,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id uint, chatID uint, senderID uint, content string) *models.Message {
	if id == 0 {
		id = 1
	}
	if chatID == 0 {
		chatID = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if content == "" {
		content = "Test message"
	}

	return &models.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Kind:      models.TextMessage,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}

// AssertNil checks if a value is nil
func (h *TestHelper) AssertNil(value interface{}, testName string) {
	if value != nil {
		h.t.Errorf("%s: expected nil value but got %v", testName, value)
	}
}

// GetRecordNotFoundError returns an error that mimics gorm.ErrRecordNotFound
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/push"
)

type notifyServiceFixture struct {
	svc              *NotifyService
	notificationRepo *MockNotificationRepository
	preferenceRepo   *MockPreferenceRepository
	gateway          *FakeGateway
	pushSender       *FakePushSender
}

// The push sender is left detached so Dispatch stays fully synchronous;
// push delivery is exercised through pushToUser directly.
func newNotifyServiceFixture(onlineUsers ...uint) *notifyServiceFixture {
	notificationRepo := NewMockNotificationRepository()
	preferenceRepo := NewMockPreferenceRepository()
	gateway := NewFakeGateway(onlineUsers...)
	return &notifyServiceFixture{
		svc:              NewNotifyService(notificationRepo, preferenceRepo, gateway, nil, nil),
		notificationRepo: notificationRepo,
		preferenceRepo:   preferenceRepo,
		gateway:          gateway,
		pushSender:       NewFakePushSender(),
	}
}

func TestDispatch(t *testing.T) {
	f := newNotifyServiceFixture(1, 2)
	chatID := uint(7)

	f.svc.Dispatch([]uint{1, 2, 3}, []uint{2, 3}, Event{
		Name:    EventGroupUpdated,
		Kind:    models.KindGroupUpdated,
		Toggle:  models.ToggleGroupActivity,
		ActorID: 9,
		ChatID:  &chatID,
		Body:    "plans changed",
	})

	// Connected recipients see the live event; user 3 is offline.
	for _, userID := range []uint{1, 2} {
		if got := f.gateway.EmitsTo(userID, EventGroupUpdated); got != 1 {
			t.Errorf("user %d received %d live events, want 1", userID, got)
		}
	}
	if got := f.gateway.EmitsTo(3, EventGroupUpdated); got != 0 {
		t.Errorf("offline user received %d live events, want 0", got)
	}

	// Only the durable set gets rows, connected or not.
	if list, _ := f.notificationRepo.ListForUser(1, 0, 10); len(list) != 0 {
		t.Errorf("user 1 rows = %+v, want none", list)
	}
	for _, userID := range []uint{2, 3} {
		list, _ := f.notificationRepo.ListForUser(userID, 0, 10)
		if len(list) != 1 {
			t.Fatalf("user %d rows = %+v, want 1", userID, list)
		}
		n := list[0]
		if n.Kind != models.KindGroupUpdated || n.ActorID != 9 || n.Body != "plans changed" {
			t.Errorf("row = %+v, want kind/actor/body carried over", n)
		}
		if n.ChatID == nil || *n.ChatID != chatID {
			t.Errorf("row chat = %v, want %d", n.ChatID, chatID)
		}
		if n.Read {
			t.Error("new row already read")
		}
	}
}

func TestDispatchEphemeral(t *testing.T) {
	f := newNotifyServiceFixture(1)
	f.svc.Dispatch([]uint{1}, nil, Event{Name: EventMessageEdited, ActorID: 2})

	if got := f.gateway.EmitsTo(1, EventMessageEdited); got != 1 {
		t.Errorf("live events = %d, want 1", got)
	}
	if list, _ := f.notificationRepo.ListForUser(1, 0, 10); len(list) != 0 {
		t.Errorf("ephemeral event created rows: %+v", list)
	}
}

func TestPushToUser(t *testing.T) {
	f := newNotifyServiceFixture()
	f.svc.pushSender = f.pushSender
	for _, token := range []string{"tok-a", "tok-b"} {
		if _, err := f.preferenceRepo.AddToken(&models.PushToken{UserID: 1, Token: token}); err != nil {
			t.Fatalf("AddToken() error = %v", err)
		}
	}

	ev := Event{Name: EventMessageReceived, Kind: models.KindNewMessage, Toggle: models.ToggleNewMessages, Body: "hi"}
	f.svc.pushToUser(context.Background(), 1, ev)
	if got := f.pushSender.SentCount(); got != 2 {
		t.Errorf("push attempts = %d, want one per token", got)
	}
}

func TestPushToUserHonorsToggle(t *testing.T) {
	f := newNotifyServiceFixture()
	f.svc.pushSender = f.pushSender
	if _, err := f.preferenceRepo.AddToken(&models.PushToken{UserID: 1, Token: "tok-a"}); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}
	pref := models.DefaultPreference(1)
	pref.NewMessages = false
	if err := f.preferenceRepo.Upsert(pref); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	ev := Event{Name: EventMessageReceived, Kind: models.KindNewMessage, Toggle: models.ToggleNewMessages}
	f.svc.pushToUser(context.Background(), 1, ev)
	if got := f.pushSender.SentCount(); got != 0 {
		t.Errorf("push attempts = %d, want 0 with the toggle off", got)
	}

	// An event without a toggle is always pushable.
	f.svc.pushToUser(context.Background(), 1, Event{Name: EventGroupUpdated})
	if got := f.pushSender.SentCount(); got != 1 {
		t.Errorf("push attempts = %d, want 1 for untoggled event", got)
	}
}

func TestPushToUserPrunesUnregisteredTokens(t *testing.T) {
	f := newNotifyServiceFixture()
	f.svc.pushSender = f.pushSender
	for _, token := range []string{"tok-dead", "tok-flaky", "tok-live"} {
		if _, err := f.preferenceRepo.AddToken(&models.PushToken{UserID: 1, Token: token}); err != nil {
			t.Fatalf("AddToken() error = %v", err)
		}
	}
	f.pushSender.FailToken("tok-dead", push.ErrUnregistered)
	f.pushSender.FailToken("tok-flaky", errors.New("provider timeout"))

	f.svc.pushToUser(context.Background(), 1, Event{Name: EventMessageReceived})

	tokens, err := f.preferenceRepo.ListTokens(1)
	if err != nil {
		t.Fatalf("ListTokens() error = %v", err)
	}
	// The unregistered token is gone; the transient failure keeps its token.
	want := []string{"tok-flaky", "tok-live"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens after prune = %+v, want %v", tokens, want)
	}
	for i, token := range want {
		if tokens[i].Token != token {
			t.Errorf("tokens[%d] = %q, want %q", i, tokens[i].Token, token)
		}
	}
}

func TestListNotifications(t *testing.T) {
	f := newNotifyServiceFixture()
	for i := 0; i < 5; i++ {
		if err := f.notificationRepo.Create(&models.Notification{UserID: 1, Kind: models.KindNewMessage}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := f.svc.MarkRead(1, []uint{1}); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	list, unread, err := f.svc.ListNotifications(1, 0, 2)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != 5 || list[1].ID != 4 {
		t.Errorf("ListNotifications() page = %+v, want newest first [5 4]", list)
	}
	if unread != 4 {
		t.Errorf("ListNotifications() unread = %d, want 4", unread)
	}

	next, _, err := f.svc.ListNotifications(1, list[1].ID, 2)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(next) != 2 || next[0].ID != 3 {
		t.Errorf("ListNotifications() second page = %+v, want [3 2]", next)
	}
}

func TestMarkRead(t *testing.T) {
	f := newNotifyServiceFixture()
	for i := 0; i < 3; i++ {
		if err := f.notificationRepo.Create(&models.Notification{UserID: 1, Kind: models.KindReaction}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	updated, err := f.svc.MarkRead(1, []uint{1, 2})
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("MarkRead() updated = %d, want 2", updated)
	}

	// No ids means the whole inbox.
	updated, err = f.svc.MarkRead(1, nil)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if updated != 1 {
		t.Errorf("MarkRead() all updated = %d, want the 1 remaining", updated)
	}
	if unread, _ := f.notificationRepo.CountUnread(1); unread != 0 {
		t.Errorf("unread after mark-all = %d, want 0", unread)
	}
}

func TestUpdatePreferences(t *testing.T) {
	f := newNotifyServiceFixture()

	pref, err := f.svc.UpdatePreferences(1, map[string]bool{
		models.ToggleReactions: false,
		"unknown_toggle":       false,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if pref.Reactions {
		t.Error("reactions toggle still on")
	}
	if !pref.NewMessages || !pref.GroupActivity {
		t.Errorf("unrelated toggles changed: %+v", pref.Toggles())
	}
}

func TestGetPreferencesDefaults(t *testing.T) {
	f := newNotifyServiceFixture()
	pref, err := f.svc.GetPreferences(1)
	if err != nil {
		t.Fatalf("GetPreferences() error = %v", err)
	}
	for name, enabled := range pref.Toggles() {
		if !enabled {
			t.Errorf("default toggle %q = false, want true", name)
		}
	}
}

func TestRegisterToken(t *testing.T) {
	f := newNotifyServiceFixture()
	if err := f.svc.RegisterToken(1, "tok-a", "android"); err != nil {
		t.Fatalf("RegisterToken() error = %v", err)
	}
	if err := f.svc.RegisterToken(1, "tok-a", "android"); !errors.Is(err, apperr.ErrNoOp) {
		t.Errorf("RegisterToken() duplicate error = %v, want ErrNoOp", err)
	}
}

func TestUnregisterToken(t *testing.T) {
	f := newNotifyServiceFixture()
	if err := f.svc.RegisterToken(1, "tok-a", "web"); err != nil {
		t.Fatalf("RegisterToken() error = %v", err)
	}
	if err := f.svc.UnregisterToken(1, "tok-a"); err != nil {
		t.Fatalf("UnregisterToken() error = %v", err)
	}
	if err := f.svc.UnregisterToken(1, "tok-a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UnregisterToken() unknown token error = %v, want ErrNotFound", err)
	}
}

package ws

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

// fakeMembership answers membership checks from a fixed set.
type fakeMembership struct {
	members map[uint]map[uint]bool
	err     error
}

func (f *fakeMembership) IsMember(chatID, userID uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[chatID][userID], nil
}

func newContext(hub *Hub, userID uint, connID uint64, chats ChatMembership) *MessageContext {
	return &MessageContext{UserID: userID, ConnID: connID, Hub: hub, Chats: chats}
}

func TestChatRoom(t *testing.T) {
	if got := ChatRoom(42); got != "chat:42" {
		t.Errorf("ChatRoom(42) = %q, want %q", got, "chat:42")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	original := &MessageJoinChat{ChatID: 7}
	data, err := Serialize(original)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	joined, ok := decoded.(*MessageJoinChat)
	if !ok {
		t.Fatalf("Deserialize() type = %T, want *MessageJoinChat", decoded)
	}
	if joined.ChatID != 7 {
		t.Errorf("Deserialize() chatId = %d, want 7", joined.ChatID)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	if _, err := Deserialize([]byte(`{"type":"no-such-type","payload":{}}`)); err == nil {
		t.Error("Deserialize() unknown type succeeded, want error")
	}
}

func TestTypeRegistryCoversProtocol(t *testing.T) {
	registry := GetTypeRegistry()
	for _, msgType := range []string{
		"join-chat", "leave-chat",
		"typing", "stop-typing",
		"call-signal", "call-answer", "call-audio-toggle", "call-video-toggle",
		"ping", "pong",
	} {
		if _, ok := registry[msgType]; !ok {
			t.Errorf("type %q is not registered", msgType)
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"type":"typing","payload":{"chatId":3}}`), 40)
	compressed, err := CompressMessage(payload)
	if err != nil {
		t.Fatalf("CompressMessage() error = %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Errorf("compressed %d bytes into %d, want shrinkage on repetitive input", len(payload), len(compressed))
	}

	expanded, err := DecompressMessage(compressed)
	if err != nil {
		t.Fatalf("DecompressMessage() error = %v", err)
	}
	if !bytes.Equal(expanded, payload) {
		t.Error("round trip altered the payload")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := DecompressMessage([]byte("not gzip at all")); err == nil {
		t.Error("DecompressMessage() on garbage succeeded, want error")
	}
}

func TestHubEmptyStateQueries(t *testing.T) {
	hub := NewHub(nil)
	if hub.IsOnline(1) {
		t.Error("IsOnline() = true on an empty hub")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
	if users := hub.OnlineUsers(); len(users) != 0 {
		t.Errorf("OnlineUsers() = %v, want empty", users)
	}

	// Emits to nobody must be harmless.
	hub.EmitToUser(1, EventUserOnline, nil)
	hub.EmitToConn(1, EventConnected, nil)
	hub.EmitToRoom(ChatRoom(1), 0, EventTyping, nil)
	hub.BroadcastAll(EventUserOffline, nil)
	hub.Unregister(99)
}

func TestJoinRoomRequiresConnection(t *testing.T) {
	hub := NewHub(nil)
	hub.JoinRoom(5, ChatRoom(1))
	if hub.InRoom(5, ChatRoom(1)) {
		t.Error("unregistered connection joined a room")
	}
	// Leaving a room never joined is a no-op.
	hub.LeaveRoom(5, ChatRoom(1))
}

func TestJoinChatMessage(t *testing.T) {
	hub := NewHub(nil)
	chats := &fakeMembership{members: map[uint]map[uint]bool{3: {1: true}}}

	tests := []struct {
		name    string
		msg     *MessageJoinChat
		ctx     *MessageContext
		wantErr bool
	}{
		{"member joins", &MessageJoinChat{ChatID: 3}, newContext(hub, 1, 10, chats), false},
		{"missing chat id", &MessageJoinChat{}, newContext(hub, 1, 10, chats), true},
		{"non-member", &MessageJoinChat{ChatID: 3}, newContext(hub, 2, 11, chats), true},
		{"lookup failure", &MessageJoinChat{ChatID: 3}, newContext(hub, 1, 10, &fakeMembership{err: errors.New("db down")}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Process(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLeaveChatMessage(t *testing.T) {
	hub := NewHub(nil)
	ctx := newContext(hub, 1, 10, &fakeMembership{})

	if err := (&MessageLeaveChat{}).Process(ctx); err == nil {
		t.Error("Process() without chatId succeeded, want error")
	}
	// Leaving a chat never joined succeeds silently.
	if err := (&MessageLeaveChat{ChatID: 3}).Process(ctx); err != nil {
		t.Errorf("Process() error = %v", err)
	}
}

func TestTypingRequiresRoomMembership(t *testing.T) {
	hub := NewHub(nil)
	ctx := newContext(hub, 1, 10, &fakeMembership{})

	if err := (&MessageTyping{}).Process(ctx); err == nil {
		t.Error("Process() without chatId succeeded, want error")
	}
	// The connection never joined chat 3's room.
	if err := (&MessageTyping{ChatID: 3}).Process(ctx); err == nil {
		t.Error("Process() outside the room succeeded, want error")
	}
	if err := (&MessageStopTyping{ChatID: 3}).Process(ctx); err == nil {
		t.Error("stop-typing outside the room succeeded, want error")
	}
}

func TestCallRelayRequiresConnectedTarget(t *testing.T) {
	hub := NewHub(nil)
	ctx := newContext(hub, 1, 10, &fakeMembership{})

	if err := (&MessageCallSignal{ChatID: 3}).Process(ctx); err == nil {
		t.Error("call-signal without target succeeded, want error")
	}
	// User 2 has no live connection, so there is nobody to ring.
	if err := (&MessageCallSignal{To: 2, ChatID: 3}).Process(ctx); err == nil {
		t.Error("call-signal to offline user succeeded, want error")
	}
	if err := (&MessageCallAnswer{To: 2, Accepted: true}).Process(ctx); err == nil {
		t.Error("call-answer to offline user succeeded, want error")
	}
	if err := (&MessageCallAudioToggle{To: 2}).Process(ctx); err == nil {
		t.Error("call-audio-toggle to offline user succeeded, want error")
	}
}

func TestSendProtocolErrorUnknownConn(t *testing.T) {
	hub := NewHub(nil)

	// A connection that already unregistered gets nothing, not a raw write.
	if err := hub.SendProtocolError(99, "invalid_message", "Invalid message format", "bad json"); err != nil {
		t.Errorf("SendProtocolError() error = %v", err)
	}
}

func TestSendProtocolErrorConcurrentWithEmits(t *testing.T) {
	hub := NewHub(nil)

	// Protocol errors from the read loop and hub emits target the same
	// client write path; interleaving them must be safe.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.SendProtocolError(1, "processing_failed", "Failed to process message", "boom")
		}()
		go func() {
			defer wg.Done()
			hub.EmitToUser(1, EventTyping, map[string]uint{"chatId": 3})
		}()
	}
	wg.Wait()
}

func TestDeserializeWithoutPayload(t *testing.T) {
	msg, err := Deserialize([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if _, ok := msg.(*MessagePing); !ok {
		t.Errorf("Deserialize() = %T, want *MessagePing", msg)
	}
}

package ws

import "fmt"

// TypingPayload is relayed to the rest of the room for both typing events.
type TypingPayload struct {
	ChatID uint `json:"chatId"`
	UserID uint `json:"userId"`
}

// MessageTyping relays a typing indicator to the chat's room. Never
// persisted; connections that have not joined the room see nothing.
type MessageTyping struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageTyping) GetType() string {
	return "typing"
}

func (msg *MessageTyping) Process(ctx *MessageContext) error {
	return relayTyping(ctx, msg.ChatID, EventTyping)
}

// MessageStopTyping clears a typing indicator.
type MessageStopTyping struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageStopTyping) GetType() string {
	return "stop-typing"
}

func (msg *MessageStopTyping) Process(ctx *MessageContext) error {
	return relayTyping(ctx, msg.ChatID, EventStopTyping)
}

func relayTyping(ctx *MessageContext, chatID uint, event string) error {
	if chatID == 0 {
		return fmt.Errorf("chatId is required")
	}

	room := ChatRoom(chatID)
	if !ctx.Hub.InRoom(ctx.ConnID, room) {
		return fmt.Errorf("join chat %d before sending typing events", chatID)
	}

	ctx.Hub.EmitToRoom(room, ctx.UserID, event, TypingPayload{
		ChatID: chatID,
		UserID: ctx.UserID,
	})
	return nil
}

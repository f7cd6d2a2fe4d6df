package ws

import "fmt"

// MessageJoinChat subscribes the connection to a chat's room. Membership is
// verified once here; relays inside the room trust the subscription.
type MessageJoinChat struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageJoinChat) GetType() string {
	return "join-chat"
}

func (msg *MessageJoinChat) Process(ctx *MessageContext) error {
	if msg.ChatID == 0 {
		return fmt.Errorf("chatId is required")
	}

	member, err := ctx.Chats.IsMember(msg.ChatID, ctx.UserID)
	if err != nil {
		return fmt.Errorf("membership lookup failed: %w", err)
	}
	if !member {
		return fmt.Errorf("not a member of chat %d", msg.ChatID)
	}

	ctx.Hub.JoinRoom(ctx.ConnID, ChatRoom(msg.ChatID))
	ctx.Hub.EmitToConn(ctx.ConnID, EventChatJoined, map[string]uint{"chatId": msg.ChatID})
	return nil
}

// MessageLeaveChat unsubscribes the connection from a chat's room. Leaving a
// room one never joined is a no-op.
type MessageLeaveChat struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageLeaveChat) GetType() string {
	return "leave-chat"
}

func (msg *MessageLeaveChat) Process(ctx *MessageContext) error {
	if msg.ChatID == 0 {
		return fmt.Errorf("chatId is required")
	}

	ctx.Hub.LeaveRoom(ctx.ConnID, ChatRoom(msg.ChatID))
	ctx.Hub.EmitToConn(ctx.ConnID, EventChatLeft, map[string]uint{"chatId": msg.ChatID})
	return nil
}

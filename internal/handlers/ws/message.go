package ws

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ChatMembership answers the one question the gateway asks of the chat
// domain: may this user join this chat's room. Implemented by
// service.ChatService; declared here so the hub and service packages stay
// one-directional.
type ChatMembership interface {
	IsMember(chatID, userID uint) (bool, error)
}

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	UserID uint
	ConnID uint64
	Hub    *Hub
	Chats  ChatMembership
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent as a protocol-error event when processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

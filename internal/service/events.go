package service

import (
	"github.com/sethshivam11/social-media-backend/internal/models"
)

// Socket event names sent to clients. These are a compatibility surface:
// renaming one breaks deployed clients.
const (
	EventMessageReceived    = "message-received"
	EventMessageEdited      = "message-edited"
	EventMessageDeleted     = "message-deleted"
	EventReactionAdded      = "reaction-added"
	EventReactionRemoved    = "reaction-removed"
	EventGroupCreated       = "group-created"
	EventParticipantAdded   = "participant-added"
	EventParticipantRemoved = "participant-removed"
	EventGroupUpdated       = "group-updated"
	EventGroupLeft          = "group-left"
	EventGroupDeleted       = "group-deleted"
	EventAdminAdded         = "admin-added"
	EventAdminRemoved       = "admin-removed"
)

// Event is one fan-out unit: a typed socket event plus, for durable event
// classes, the material for a Notification row and an external push.
type Event struct {
	Name      string
	Kind      models.NotificationKind // ignored for recipients outside the durable set
	Toggle    string                  // preference toggle gating external push
	ActorID   uint
	ChatID    *uint
	MessageID *uint
	Body      string
	Payload   interface{}
}

// ChatDelta is the payload shape for group lifecycle events: the actor plus
// what changed.
type ChatDelta struct {
	Chat       models.ChatResponse `json:"chat"`
	ActorID    uint                `json:"actor_id"`
	AddedIDs   []uint              `json:"added_ids,omitempty"`
	RemovedIDs []uint              `json:"removed_ids,omitempty"`
	AdminIDs   []uint              `json:"admin_ids,omitempty"`
}

// ReactionPayload accompanies reaction-added / reaction-removed.
type ReactionPayload struct {
	MessageID uint   `json:"message_id"`
	ChatID    uint   `json:"chat_id"`
	UserID    uint   `json:"user_id"`
	Content   string `json:"content,omitempty"`
}

// MessageDeletedPayload accompanies message-deleted.
type MessageDeletedPayload struct {
	MessageID uint `json:"message_id"`
	ChatID    uint `json:"chat_id"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type MessageKind string

const (
	TextMessage     MessageKind = "text"
	ImageMessage    MessageKind = "image"
	VideoMessage    MessageKind = "video"
	AudioMessage    MessageKind = "audio"
	DocumentMessage MessageKind = "document"
	PostMessage     MessageKind = "post"
	LocationMessage MessageKind = "location"
)

type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ChatID   uint `gorm:"not null;index" json:"chat_id"`
	SenderID uint `gorm:"not null;index" json:"sender_id"`

	Content string      `gorm:"type:text" json:"content"`
	Kind    MessageKind `gorm:"type:varchar(20);default:'text'" json:"kind"`

	// Object-storage key for media messages; empty for text.
	AttachmentKey string `json:"attachment_key,omitempty"`
	SharedPostID  *uint  `gorm:"index" json:"shared_post_id,omitempty"`

	// Quoted excerpt of the message being replied to. No link back to the
	// original; the excerpt is the whole reply context.
	ReplyExcerpt string `gorm:"size:500" json:"reply_excerpt,omitempty"`

	Reacts []MessageReact `gorm:"foreignKey:MessageID" json:"reacts"`
}

// MessageReact is keyed by (message, user): a user has at most one reaction
// per message and reacting again replaces it in place.
type MessageReact struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Content   string    `gorm:"size:64;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactMap renders reactions as user id -> content.
func (m *Message) ReactMap() map[uint]string {
	out := make(map[uint]string, len(m.Reacts))
	for _, r := range m.Reacts {
		out[r.UserID] = r.Content
	}
	return out
}

type MessageResponse struct {
	ID            uint            `json:"id"`
	ChatID        uint            `json:"chat_id"`
	SenderID      uint            `json:"sender_id"`
	Content       string          `json:"content"`
	Kind          MessageKind     `json:"kind"`
	AttachmentKey string          `json:"attachment_key,omitempty"`
	SharedPostID  *uint           `json:"shared_post_id,omitempty"`
	ReplyExcerpt  string          `json:"reply_excerpt,omitempty"`
	Reacts        map[uint]string `json:"reacts"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		ChatID:        m.ChatID,
		SenderID:      m.SenderID,
		Content:       m.Content,
		Kind:          m.Kind,
		AttachmentKey: m.AttachmentKey,
		SharedPostID:  m.SharedPostID,
		ReplyExcerpt:  m.ReplyExcerpt,
		Reacts:        m.ReactMap(),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

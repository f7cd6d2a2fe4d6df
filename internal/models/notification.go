package models

import "time"

type NotificationKind string

const (
	KindNewMessage         NotificationKind = "new_message"
	KindGroupCreated       NotificationKind = "group_created"
	KindParticipantAdded   NotificationKind = "participant_added"
	KindParticipantRemoved NotificationKind = "participant_removed"
	KindGroupUpdated       NotificationKind = "group_updated"
	KindGroupLeft          NotificationKind = "group_left"
	KindGroupDeleted       NotificationKind = "group_deleted"
	KindAdminAdded         NotificationKind = "admin_added"
	KindAdminRemoved       NotificationKind = "admin_removed"
	KindReaction           NotificationKind = "reaction"
)

// Notification is the durable in-app record created by fan-out for offline
// and online recipients alike. Ephemeral events (typing, call signaling)
// never produce one.
type Notification struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	Kind      NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	ActorID   uint             `gorm:"not null" json:"actor_id"`
	ChatID    *uint            `gorm:"index" json:"chat_id,omitempty"`
	MessageID *uint            `json:"message_id,omitempty"`
	Body      string           `gorm:"size:255" json:"body"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationPreference exists lazily: a user without a row gets the
// defaults (everything on, no tokens).
type NotificationPreference struct {
	UserID    uint      `gorm:"primarykey" json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`

	NewMessages   bool `gorm:"not null;default:true" json:"-"`
	GroupActivity bool `gorm:"not null;default:true" json:"-"`
	Reactions     bool `gorm:"not null;default:true" json:"-"`

	Tokens []PushToken `gorm:"foreignKey:UserID;references:UserID" json:"tokens"`
}

const (
	ToggleNewMessages   = "new_messages"
	ToggleGroupActivity = "group_activity"
	ToggleReactions     = "reactions"
)

// Toggle reports whether the named toggle is enabled. Unknown names are
// treated as enabled so new event classes fail open.
func (p *NotificationPreference) Toggle(name string) bool {
	switch name {
	case ToggleNewMessages:
		return p.NewMessages
	case ToggleGroupActivity:
		return p.GroupActivity
	case ToggleReactions:
		return p.Reactions
	default:
		return true
	}
}

func (p *NotificationPreference) Toggles() map[string]bool {
	return map[string]bool{
		ToggleNewMessages:   p.NewMessages,
		ToggleGroupActivity: p.GroupActivity,
		ToggleReactions:     p.Reactions,
	}
}

func DefaultPreference(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:        userID,
		NewMessages:   true,
		GroupActivity: true,
		Reactions:     true,
	}
}

// PushToken is one external push endpoint for a user. The composite key
// forbids duplicate registration; tokens are pruned when a delivery attempt
// reports them unregistered.
type PushToken struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Token     string    `gorm:"primaryKey;size:512" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PreferenceResponse struct {
	UserID  uint            `json:"user_id"`
	Toggles map[string]bool `json:"toggles"`
	Tokens  []string        `json:"tokens"`
}

func (p *NotificationPreference) ToResponse() PreferenceResponse {
	tokens := make([]string, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		tokens = append(tokens, t.Token)
	}
	return PreferenceResponse{
		UserID:  p.UserID,
		Toggles: p.Toggles(),
		Tokens:  tokens,
	}
}

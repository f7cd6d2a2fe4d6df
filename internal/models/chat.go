package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

type ChatRole string

const (
	RoleAdmin  ChatRole = "admin"
	RoleMember ChatRole = "member"
)

// DefaultGroupIcon is never deleted from object storage when a group goes away.
const DefaultGroupIcon = "icons/default-group.png"

type Chat struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	IsGroup          bool   `gorm:"not null;default:false" json:"is_group"`
	GroupName        string `gorm:"size:100" json:"group_name,omitempty"`
	GroupDescription string `gorm:"size:255" json:"group_description,omitempty"`
	GroupIcon        string `json:"group_icon,omitempty"`

	// Points at the most recent message; cleared (not reassigned) when that
	// message is deleted.
	LastMessageID *uint `gorm:"index" json:"last_message_id,omitempty"`

	Members []ChatMember `gorm:"foreignKey:ChatID" json:"members"`
}

type ChatMember struct {
	ChatID   uint      `gorm:"primaryKey" json:"chat_id"`
	UserID   uint      `gorm:"primaryKey" json:"user_id"`
	Role     ChatRole  `gorm:"type:varchar(20);default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// OrderedMembers returns members in membership order: JoinedAt ascending,
// user id as tie-break. Admin succession depends on this order being stable.
func (c *Chat) OrderedMembers() []ChatMember {
	out := make([]ChatMember, len(c.Members))
	copy(out, c.Members)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (c *Chat) UserIDs() []uint {
	members := c.OrderedMembers()
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (c *Chat) AdminIDs() []uint {
	members := c.OrderedMembers()
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		if m.Role == RoleAdmin {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

func (c *Chat) HasMember(userID uint) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (c *Chat) IsAdmin(userID uint) bool {
	for _, m := range c.Members {
		if m.UserID == userID && m.Role == RoleAdmin {
			return true
		}
	}
	return false
}

type ChatResponse struct {
	ID               uint      `json:"id"`
	IsGroup          bool      `json:"is_group"`
	GroupName        string    `json:"group_name,omitempty"`
	GroupDescription string    `json:"group_description,omitempty"`
	GroupIcon        string    `json:"group_icon,omitempty"`
	Users            []uint    `json:"users"`
	Admins           []uint    `json:"admins"`
	LastMessageID    *uint     `json:"last_message_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c *Chat) ToResponse() ChatResponse {
	return ChatResponse{
		ID:               c.ID,
		IsGroup:          c.IsGroup,
		GroupName:        c.GroupName,
		GroupDescription: c.GroupDescription,
		GroupIcon:        c.GroupIcon,
		Users:            c.UserIDs(),
		Admins:           c.AdminIDs(),
		LastMessageID:    c.LastMessageID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

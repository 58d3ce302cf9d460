package models

import (
	"time"
)

// Author is a snapshot of the sender's profile captured at send time.
// Profile changes after the fact do not rewrite old messages.
type Author struct {
	UID       uint      `json:"uid"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joined_at"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Attachment describes a binary payload stored in the object store.
// URL is the opaque locator (object key), not a public address.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	RoomID uint   `gorm:"not null;index:idx_room_created,priority:1" json:"room_id"`
	Author Author `gorm:"serializer:json;not null" json:"author"`

	// Exactly one of Text or File is set.
	Text string      `gorm:"type:text" json:"text,omitempty"`
	File *Attachment `gorm:"serializer:json" json:"file,omitempty"`

	// Likes and LikeCount are committed together under the same version,
	// so LikeCount == len(Likes) at every committed state.
	Likes     map[uint]bool `gorm:"serializer:json" json:"likes,omitempty"`
	LikeCount int           `gorm:"default:0" json:"like_count"`

	// Version backs the conditional like-set writes.
	Version int `gorm:"default:1" json:"-"`
}

func (m *Message) IsLikedBy(userID uint) bool {
	return m.Likes[userID]
}

// Summarize builds the denormalized last-message projection entry.
func (m *Message) Summarize() *MessageSummary {
	return &MessageSummary{
		MessageID: m.ID,
		RoomID:    m.RoomID,
		Author:    m.Author,
		Text:      m.Text,
		File:      m.File,
		CreatedAt: m.CreatedAt,
	}
}

type MessageResponse struct {
	ID        uint        `json:"id"`
	RoomID    uint        `json:"room_id"`
	Author    Author      `json:"author"`
	Text      string      `json:"text,omitempty"`
	File      *Attachment `json:"file,omitempty"`
	Likes     []uint      `json:"likes"`
	LikeCount int         `json:"like_count"`
	CreatedAt time.Time   `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	likes := make([]uint, 0, len(m.Likes))
	for uid, ok := range m.Likes {
		if ok {
			likes = append(likes, uid)
		}
	}
	return MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Author:    m.Author,
		Text:      m.Text,
		File:      m.File,
		Likes:     likes,
		LikeCount: m.LikeCount,
		CreatedAt: m.CreatedAt,
	}
}

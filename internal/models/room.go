package models

import (
	"time"
)

// MessageSummary is the room's denormalized "last message" projection.
// Derived state only; the message log stays authoritative.
type MessageSummary struct {
	MessageID uint        `json:"message_id"`
	RoomID    uint        `json:"room_id"`
	Author    Author      `json:"author"`
	Text      string      `json:"text,omitempty"`
	File      *Attachment `json:"file,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type Room struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	// Admins is nil until the room-management subsystem seeds it.
	// A nil set means "no admin bucket": toggles leave it untouched.
	Admins map[uint]bool `gorm:"serializer:json" json:"admins,omitempty"`

	LastMessage *MessageSummary `gorm:"serializer:json" json:"last_message,omitempty"`

	// Version backs the conditional admin-set writes.
	Version int `gorm:"default:1" json:"-"`
}

func (r *Room) IsAdmin(userID uint) bool {
	return r.Admins[userID]
}

type RoomResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Admins      []uint          `json:"admins"`
	LastMessage *MessageSummary `json:"last_message,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (r *Room) ToResponse() RoomResponse {
	admins := make([]uint, 0, len(r.Admins))
	for uid, ok := range r.Admins {
		if ok {
			admins = append(admins, uid)
		}
	}
	return RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Admins:      admins,
		LastMessage: r.LastMessage,
		CreatedAt:   r.CreatedAt,
	}
}

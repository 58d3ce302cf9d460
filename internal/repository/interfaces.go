package repository

import (
	"github.com/vibechat/vibechat-backend/internal/models"
)

// LikeState is the mutable slice of a message touched by like toggles.
// The set and the denormalized count travel together through one
// conditional write so they cannot drift apart between committed versions.
type LikeState struct {
	RoomID    uint
	Likes     map[uint]bool
	LikeCount int
}

// MessageRepositoryInterface defines the contract for message log operations
type MessageRepositoryInterface interface {
	// CreateWithProjection appends the message and overwrites the room's
	// last-message projection in one transaction. The projection write is
	// unconditional: under concurrent sends the last writer wins.
	CreateWithProjection(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	// FindWindow returns the most recent limit messages of the room in
	// chronological order (oldest first).
	FindWindow(roomID uint, limit int) ([]models.Message, error)
	LoadLikes(messageID uint) (state LikeState, version int, found bool, err error)
	CommitLikes(messageID uint, state LikeState, expectedVersion int) (bool, error)
	// DeleteWithProjection removes the message and, when repairProjection is
	// set, rewrites the room's last-message projection to repair (nil clears
	// it). Both changes commit or fail together.
	DeleteWithProjection(messageID, roomID uint, repair *models.MessageSummary, repairProjection bool) error
}

// RoomRepositoryInterface defines the contract for room record operations
type RoomRepositoryInterface interface {
	FindByID(id uint) (*models.Room, error)
	LoadAdmins(roomID uint) (admins map[uint]bool, version int, found bool, err error)
	CommitAdmins(roomID uint, admins map[uint]bool, expectedVersion int) (bool, error)
}

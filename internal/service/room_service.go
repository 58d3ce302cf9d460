package service

import (
	"errors"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"gorm.io/gorm"
)

type RoomService struct {
	roomRepo repository.RoomRepositoryInterface
}

func NewRoomService(roomRepo repository.RoomRepositoryInterface) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// GetRoom returns the room record, including the admin set and the
// last-message projection.
func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

package repository

import (
	"errors"

	"github.com/vibechat/vibechat-backend/internal/models"
	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) LoadAdmins(roomID uint) (map[uint]bool, int, bool, error) {
	var room models.Room
	err := r.db.First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	// A room without an admin bucket stays nil; only an existing set is
	// copied for the transform.
	if room.Admins == nil {
		return nil, room.Version, true, nil
	}
	admins := make(map[uint]bool, len(room.Admins))
	for uid, ok := range room.Admins {
		if ok {
			admins[uid] = true
		}
	}
	return admins, room.Version, true, nil
}

func (r *RoomRepository) CommitAdmins(roomID uint, admins map[uint]bool, expectedVersion int) (bool, error) {
	res := r.db.Model(&models.Room{}).
		Where("id = ? AND version = ?", roomID, expectedVersion).
		Select("admins", "version").
		Updates(models.Room{
			Admins:  admins,
			Version: expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

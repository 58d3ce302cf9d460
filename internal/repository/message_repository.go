package repository

import (
	"errors"

	"github.com/vibechat/vibechat-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) CreateWithProjection(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		// The fresh insert is the new tail by construction, so no
		// read-before-write: blind projection overwrite.
		return tx.Model(&models.Room{}).
			Where("id = ?", message.RoomID).
			Select("last_message").
			Updates(models.Room{LastMessage: message.Summarize()}).Error
	})
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) FindWindow(roomID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, err
}

func (r *MessageRepository) LoadLikes(messageID uint) (LikeState, int, bool, error) {
	var message models.Message
	err := r.db.First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LikeState{}, 0, false, nil
	}
	if err != nil {
		return LikeState{}, 0, false, err
	}

	// Copy the set so the caller's transform never aliases gorm's value.
	likes := make(map[uint]bool, len(message.Likes))
	for uid, ok := range message.Likes {
		if ok {
			likes[uid] = true
		}
	}

	state := LikeState{
		RoomID:    message.RoomID,
		Likes:     likes,
		LikeCount: message.LikeCount,
	}
	return state, message.Version, true, nil
}

func (r *MessageRepository) CommitLikes(messageID uint, state LikeState, expectedVersion int) (bool, error) {
	res := r.db.Model(&models.Message{}).
		Where("id = ? AND version = ?", messageID, expectedVersion).
		Select("likes", "like_count", "version").
		Updates(models.Message{
			Likes:     state.Likes,
			LikeCount: state.LikeCount,
			Version:   expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *MessageRepository) DeleteWithProjection(messageID, roomID uint, repair *models.MessageSummary, repairProjection bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("room_id = ?", roomID).Delete(&models.Message{}, messageID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !repairProjection {
			return nil
		}
		return tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			Select("last_message").
			Updates(models.Room{LastMessage: repair}).Error
	})
}

package service

import (
	"fmt"
	"strings"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"github.com/vibechat/vibechat-backend/internal/validation"
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	notifier    Notifier
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, notifier Notifier) *MessageService {
	return &MessageService{messageRepo: messageRepo, notifier: notifier}
}

type SendMessageInput struct {
	RoomID uint               `json:"room_id"`
	Text   string             `json:"text"`
	File   *models.Attachment `json:"file"`
}

// Send appends a new message to the room's log and overwrites the room's
// last-message projection in the same transaction. The author snapshot is
// frozen into the message; later profile changes do not touch it.
func (s *MessageService) Send(author models.Author, input SendMessageInput) (*models.Message, error) {
	text := strings.TrimSpace(input.Text)

	// Exactly one of text or file.
	if text == "" && input.File == nil {
		return nil, fmt.Errorf("%w: text or file required", ErrInvalidMessage)
	}
	if text != "" && input.File != nil {
		return nil, fmt.Errorf("%w: cannot carry both text and a file", ErrInvalidMessage)
	}
	if text != "" && !validation.ValidateMessageText(text) {
		return nil, fmt.Errorf("%w: text too long", ErrInvalidMessage)
	}
	if input.File != nil && !validation.ValidateAttachment(input.File) {
		return nil, fmt.Errorf("%w: incomplete attachment", ErrInvalidMessage)
	}

	message := &models.Message{
		RoomID: input.RoomID,
		Author: author,
		Text:   text,
		File:   input.File,
	}

	if err := s.messageRepo.CreateWithProjection(message); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(message.RoomID)
	}
	return message, nil
}

package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/vibechat/vibechat-backend/internal/feed"
	"github.com/vibechat/vibechat-backend/internal/httpx"
	"github.com/vibechat/vibechat-backend/internal/middleware"
	"github.com/vibechat/vibechat-backend/internal/optimistic"
	"github.com/vibechat/vibechat-backend/internal/service"
)

type MessageHandler struct {
	messageService  *service.MessageService
	likeService     *service.LikeService
	deletionService *service.DeletionService
	feed            *feed.Feed
}

func NewMessageHandler(messageService *service.MessageService, likeService *service.LikeService, deletionService *service.DeletionService, messageFeed *feed.Feed) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		likeService:     likeService,
		deletionService: deletionService,
		feed:            messageFeed,
	}
}

// SendMessage handles POST /api/rooms/:id/messages
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	author, err := middleware.CurrentAuthor(c)
	if err != nil {
		return httpx.Unauthorized(c, "invalid_session", "Invalid session")
	}

	roomID, err := c.ParamsInt("id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	var input service.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	input.RoomID = uint(roomID)

	message, err := h.messageService.Send(author, input)
	if errors.Is(err, service.ErrInvalidMessage) {
		return httpx.BadRequest(c, "invalid_message", err.Error())
	}
	if err != nil {
		log.Printf("send failed: room=%d user=%d err=%v", roomID, author.UID, err)
		return httpx.Internal(c, "send_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

// GetWindow handles GET /api/rooms/:id/messages?limit=n
func (h *MessageHandler) GetWindow(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}
	limit := c.QueryInt("limit")

	messages, err := h.feed.Window(uint(roomID), limit)
	if err != nil {
		log.Printf("window fetch failed: room=%d err=%v", roomID, err)
		return httpx.Internal(c, "window_fetch_failed")
	}

	return c.JSON(fiber.Map{
		"room_id": roomID,
		"empty":   len(messages) == 0,
		"days":    feed.GroupByDay(messages),
	})
}

// ToggleLike handles POST /api/messages/:id/like
func (h *MessageHandler) ToggleLike(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "invalid_session", "Invalid session")
	}
	messageID, err := c.ParamsInt("id")
	if err != nil || messageID <= 0 {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message id")
	}

	liked, err := h.likeService.ToggleLike(uint(messageID), userID)
	if errors.Is(err, optimistic.ErrExhausted) {
		return httpx.Conflict(c, "concurrency_exhausted", "Too much contention, please retry")
	}
	if err != nil {
		log.Printf("like toggle failed: message=%d user=%d err=%v", messageID, userID, err)
		return httpx.Internal(c, "like_toggle_failed")
	}

	return c.JSON(fiber.Map{"liked": liked})
}

type deleteMessageRequest struct {
	// WindowMessageIDs is the caller's current window, oldest first. The
	// tail decision for projection repair is made from this view.
	WindowMessageIDs []uint `json:"window_message_ids"`
}

// DeleteMessage handles DELETE /api/rooms/:room_id/messages/:id
func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("room_id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}
	messageID, err := c.ParamsInt("id")
	if err != nil || messageID <= 0 {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message id")
	}

	var req deleteMessageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httpx.BadRequest(c, "invalid_body", "Invalid request body")
		}
	}

	result, err := h.deletionService.Delete(c.Context(), uint(roomID), uint(messageID), req.WindowMessageIDs)
	if errors.Is(err, service.ErrMessageNotFound) {
		return httpx.NotFound(c, "message_not_found", "Message not found")
	}
	if errors.Is(err, service.ErrBatchWriteFailed) {
		log.Printf("delete batch failed: room=%d message=%d err=%v", roomID, messageID, err)
		return httpx.Internal(c, "delete_failed")
	}
	if err != nil {
		log.Printf("delete failed: room=%d message=%d err=%v", roomID, messageID, err)
		return httpx.Internal(c, "delete_failed")
	}

	return c.JSON(result)
}

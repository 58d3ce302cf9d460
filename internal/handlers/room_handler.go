package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/vibechat/vibechat-backend/internal/httpx"
	"github.com/vibechat/vibechat-backend/internal/optimistic"
	"github.com/vibechat/vibechat-backend/internal/service"
)

type RoomHandler struct {
	roomService  *service.RoomService
	adminService *service.AdminService
}

func NewRoomHandler(roomService *service.RoomService, adminService *service.AdminService) *RoomHandler {
	return &RoomHandler{roomService: roomService, adminService: adminService}
}

// GetRoom handles GET /api/rooms/:id
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	room, err := h.roomService.GetRoom(uint(roomID))
	if errors.Is(err, service.ErrRoomNotFound) {
		return httpx.NotFound(c, "room_not_found", "Room not found")
	}
	if err != nil {
		log.Printf("room fetch failed: room=%d err=%v", roomID, err)
		return httpx.Internal(c, "room_fetch_failed")
	}

	return c.JSON(room.ToResponse())
}

// ToggleAdmin handles POST /api/rooms/:id/admins/:user_id
func (h *RoomHandler) ToggleAdmin(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}
	targetID, err := c.ParamsInt("user_id")
	if err != nil || targetID <= 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	granted, err := h.adminService.ToggleAdmin(uint(roomID), uint(targetID))
	if errors.Is(err, optimistic.ErrExhausted) {
		return httpx.Conflict(c, "concurrency_exhausted", "Too much contention, please retry")
	}
	if err != nil {
		log.Printf("admin toggle failed: room=%d user=%d err=%v", roomID, targetID, err)
		return httpx.Internal(c, "admin_toggle_failed")
	}

	return c.JSON(fiber.Map{"granted": granted})
}

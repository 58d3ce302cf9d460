package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/vibechat/vibechat-backend/internal/feed"
	"github.com/vibechat/vibechat-backend/internal/handlers/ws"
)

type WebSocketHandler struct {
	feed *feed.Feed
}

func NewWebSocketHandler(messageFeed *feed.Feed) *WebSocketHandler {
	return &WebSocketHandler{feed: messageFeed}
}

// HandleWebSocket serves the live feed socket. One session, one room
// subscription at a time; switching rooms closes the old subscription first.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		_ = c.Close()
		return
	}

	session := ws.NewSession(c, h.feed, userID)
	session.Run()
}

package ws

import "github.com/vibechat/vibechat-backend/internal/feed"

// Client intents.
const (
	IntentSubscribe   = "subscribe"
	IntentLoadMore    = "load_more"
	IntentUnsubscribe = "unsubscribe"
)

// Server frames.
const (
	FrameSnapshot = "snapshot"
	FrameWindow   = "window"
	FrameError    = "error"
)

// Intent is a client request on the feed socket.
type Intent struct {
	Type       string `json:"type"`
	RoomID     uint   `json:"room_id,omitempty"`
	WindowSize int    `json:"window_size,omitempty"`
}

// Frame is a server message on the feed socket.
type Frame struct {
	Type       string         `json:"type"`
	RoomID     uint           `json:"room_id,omitempty"`
	WindowSize int            `json:"window_size,omitempty"`
	Snapshot   *feed.Snapshot `json:"snapshot,omitempty"`
	Error      string         `json:"error,omitempty"`
}

package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/vibechat/vibechat-backend/internal/feed"
)

// Session drives one feed websocket: it owns at most one live room
// subscription at a time and tears it down deterministically when the client
// switches rooms, unsubscribes or disconnects. Snapshots never leak across a
// room switch because the old subscription is closed before the new one is
// opened.
type Session struct {
	conn   *websocket.Conn
	feed   *feed.Feed
	userID uint

	mu  sync.Mutex
	sub *feed.Subscription

	send chan Frame
	done chan struct{}

	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewSession(conn *websocket.Conn, messageFeed *feed.Feed, userID uint) *Session {
	return &Session{
		conn:         conn,
		feed:         messageFeed,
		userID:       userID,
		send:         make(chan Frame, 8),
		done:         make(chan struct{}),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}
}

// Run blocks until the client disconnects.
func (s *Session) Run() {
	defer func() {
		s.unsubscribe()
		close(s.done)
	}()

	s.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	})

	go s.writeLoop()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: user %d read error: %v", s.userID, err)
			}
			return
		}

		var intent Intent
		if err := json.Unmarshal(payload, &intent); err != nil {
			s.sendFrame(Frame{Type: FrameError, Error: "invalid intent"})
			continue
		}
		s.handleIntent(intent)
	}
}

func (s *Session) handleIntent(intent Intent) {
	switch intent.Type {
	case IntentSubscribe:
		if intent.RoomID == 0 {
			s.sendFrame(Frame{Type: FrameError, Error: "room_id required"})
			return
		}
		// Cancel the previous room before attaching to the next one.
		s.unsubscribe()

		sub, err := s.feed.Subscribe(intent.RoomID, intent.WindowSize)
		if err != nil {
			log.Printf("ws: user %d subscribe room=%d: %v", s.userID, intent.RoomID, err)
			s.sendFrame(Frame{Type: FrameError, RoomID: intent.RoomID, Error: "subscribe failed"})
			return
		}
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
		go s.forward(sub)

	case IntentLoadMore:
		s.mu.Lock()
		sub := s.sub
		s.mu.Unlock()
		if sub == nil {
			s.sendFrame(Frame{Type: FrameError, Error: "not subscribed"})
			return
		}
		size, err := sub.GrowWindow()
		if err != nil {
			log.Printf("ws: user %d load more room=%d: %v", s.userID, sub.RoomID(), err)
			s.sendFrame(Frame{Type: FrameError, RoomID: sub.RoomID(), Error: "load more failed"})
			return
		}
		s.sendFrame(Frame{Type: FrameWindow, RoomID: sub.RoomID(), WindowSize: size})

	case IntentUnsubscribe:
		s.unsubscribe()

	default:
		s.sendFrame(Frame{Type: FrameError, Error: "unknown intent"})
	}
}

// forward copies one subscription's snapshots to the socket until the
// subscription or the session ends.
func (s *Session) forward(sub *feed.Subscription) {
	for {
		select {
		case snap := <-sub.Updates():
			s.sendFrame(Frame{
				Type:       FrameSnapshot,
				RoomID:     snap.RoomID,
				WindowSize: snap.WindowSize,
				Snapshot:   &snap,
			})
		case <-sub.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (s *Session) sendFrame(frame Frame) {
	select {
	case s.send <- frame:
	case <-s.done:
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

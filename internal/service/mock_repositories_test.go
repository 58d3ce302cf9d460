package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"gorm.io/gorm"
)

// MockMessageRepository is an in-memory message log with the same versioned
// conditional-write behavior as the real one. All methods are safe for
// concurrent use, so toggles from multiple goroutines race between Load and
// Commit exactly like independent sessions.
type MockMessageRepository struct {
	mu       sync.Mutex
	messages map[uint]*models.Message
	rooms    map[uint]*models.Room
	nextID   uint
	clock    time.Time

	failCreate bool
	failBatch  bool
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		rooms:    make(map[uint]*models.Room),
		nextID:   1,
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func copyMessage(m *models.Message) *models.Message {
	cp := *m
	if m.Likes != nil {
		cp.Likes = make(map[uint]bool, len(m.Likes))
		for uid, ok := range m.Likes {
			cp.Likes[uid] = ok
		}
	}
	return &cp
}

func (m *MockMessageRepository) room(roomID uint) *models.Room {
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r := &models.Room{ID: roomID}
	m.rooms[roomID] = r
	return r
}

// LastMessage exposes the room's projection for assertions.
func (m *MockMessageRepository) LastMessage(roomID uint) *models.MessageSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room(roomID).LastMessage
}

func (m *MockMessageRepository) CreateWithProjection(message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("store unavailable")
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.Version == 0 {
		message.Version = 1
	}
	// Server-assigned, strictly increasing per log.
	m.clock = m.clock.Add(time.Minute)
	message.CreatedAt = m.clock

	m.messages[message.ID] = copyMessage(message)
	m.room(message.RoomID).LastMessage = message.Summarize()
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		return copyMessage(msg), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindWindow(roomID uint, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var window []models.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			window = append(window, *copyMessage(msg))
		}
	}
	sort.Slice(window, func(i, j int) bool {
		if window[i].CreatedAt.Equal(window[j].CreatedAt) {
			return window[i].ID < window[j].ID
		}
		return window[i].CreatedAt.Before(window[j].CreatedAt)
	})
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}

func (m *MockMessageRepository) LoadLikes(messageID uint) (repository.LikeState, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return repository.LikeState{}, 0, false, nil
	}
	cp := copyMessage(msg)
	return repository.LikeState{
		RoomID:    cp.RoomID,
		Likes:     cp.Likes,
		LikeCount: cp.LikeCount,
	}, cp.Version, true, nil
}

func (m *MockMessageRepository) CommitLikes(messageID uint, state repository.LikeState, expectedVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok || msg.Version != expectedVersion {
		return false, nil
	}
	msg.Likes = state.Likes
	msg.LikeCount = state.LikeCount
	msg.Version = expectedVersion + 1
	return true, nil
}

func (m *MockMessageRepository) DeleteWithProjection(messageID, roomID uint, repair *models.MessageSummary, repairProjection bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBatch {
		return errors.New("store unavailable")
	}
	msg, ok := m.messages[messageID]
	if !ok || msg.RoomID != roomID {
		return gorm.ErrRecordNotFound
	}
	delete(m.messages, messageID)
	if repairProjection {
		m.room(roomID).LastMessage = repair
	}
	return nil
}

// MockRoomRepository is an in-memory room store with versioned admin writes.
type MockRoomRepository struct {
	mu    sync.Mutex
	rooms map[uint]*models.Room
}

func NewMockRoomRepository() *MockRoomRepository {
	return &MockRoomRepository{rooms: make(map[uint]*models.Room)}
}

func (m *MockRoomRepository) Put(room *models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.Version == 0 {
		room.Version = 1
	}
	m.rooms[room.ID] = room
}

func (m *MockRoomRepository) FindByID(id uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *room
	if room.Admins != nil {
		cp.Admins = make(map[uint]bool, len(room.Admins))
		for uid, v := range room.Admins {
			cp.Admins[uid] = v
		}
	}
	return &cp, nil
}

func (m *MockRoomRepository) LoadAdmins(roomID uint) (map[uint]bool, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, 0, false, nil
	}
	if room.Admins == nil {
		return nil, room.Version, true, nil
	}
	admins := make(map[uint]bool, len(room.Admins))
	for uid, v := range room.Admins {
		admins[uid] = v
	}
	return admins, room.Version, true, nil
}

func (m *MockRoomRepository) CommitAdmins(roomID uint, admins map[uint]bool, expectedVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok || room.Version != expectedVersion {
		return false, nil
	}
	room.Admins = admins
	room.Version = expectedVersion + 1
	return true, nil
}

// mockNotifier records which rooms were reported as changed.
type mockNotifier struct {
	mu    sync.Mutex
	rooms []uint
}

func (n *mockNotifier) Notify(roomID uint) {
	n.mu.Lock()
	n.rooms = append(n.rooms, roomID)
	n.mu.Unlock()
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.rooms)
}

// mockObjectRemover simulates the binary object store's delete.
type mockObjectRemover struct {
	mu      sync.Mutex
	removed []string
	fail    bool
}

func (r *mockObjectRemover) Remove(ctx context.Context, locator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("object store unreachable")
	}
	r.removed = append(r.removed, locator)
	return nil
}

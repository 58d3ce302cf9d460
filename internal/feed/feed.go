// Package feed maintains live, windowed views of room message logs. Each
// subscriber owns a Subscription scoped to one room; every change to that
// room's log produces a fresh full-window snapshot. Teardown is explicit:
// a subscription delivers nothing after Close returns.
package feed

import (
	"log"
	"sync"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"github.com/vibechat/vibechat-backend/internal/validation"
)

// windowCache is the slice of the feed cache the feed consumes. It only
// serves the pull (REST) window path: subscription snapshots always read the
// store directly, so a cache entry re-filled by a racing fan-out can never
// hide a newer mutation from live subscribers.
type windowCache interface {
	GetWindow(roomID uint, size int) ([]models.Message, bool)
	SetWindow(roomID uint, size int, messages []models.Message) error
	InvalidateRoom(roomID uint) error
}

// Snapshot is one full rendering of a room window: the most recent
// WindowSize messages oldest-first, plus the same messages partitioned into
// calendar-day groups for display.
type Snapshot struct {
	RoomID     uint                     `json:"room_id"`
	WindowSize int                      `json:"window_size"`
	Empty      bool                     `json:"empty"`
	Messages   []models.MessageResponse `json:"messages"`
	Days       []DayGroup               `json:"days"`
}

type Feed struct {
	repo      repository.MessageRepositoryInterface
	cache     windowCache
	pageSize  int
	maxWindow int

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func New(repo repository.MessageRepositoryInterface, feedCache windowCache) *Feed {
	return &Feed{
		repo:      repo,
		cache:     feedCache,
		pageSize:  validation.DefaultPageSize(),
		maxWindow: validation.MaxWindowSize(),
		subs:      make(map[uint64]*Subscription),
	}
}

// PageSize is the window growth increment.
func (f *Feed) PageSize() int {
	return f.pageSize
}

func (f *Feed) clampWindow(limit int) int {
	if limit <= 0 {
		limit = f.pageSize
	}
	if limit > f.maxWindow {
		limit = f.maxWindow
	}
	return limit
}

// Window returns the room's most recent limit messages oldest-first,
// serving from the cache when possible.
func (f *Feed) Window(roomID uint, limit int) ([]models.Message, error) {
	limit = f.clampWindow(limit)

	if f.cache != nil {
		if messages, ok := f.cache.GetWindow(roomID, limit); ok {
			return messages, nil
		}
	}
	messages, err := f.repo.FindWindow(roomID, limit)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		if err := f.cache.SetWindow(roomID, limit, messages); err != nil {
			log.Printf("feed: cache window room=%d size=%d: %v", roomID, limit, err)
		}
	}
	return messages, nil
}

// Subscribe opens a live window onto one room. The initial snapshot is
// queued on the subscription before Subscribe returns, so the first receive
// never waits for a log change.
func (f *Feed) Subscribe(roomID uint, windowSize int) (*Subscription, error) {
	windowSize = f.clampWindow(windowSize)

	sub := &Subscription{
		feed:       f,
		roomID:     roomID,
		windowSize: windowSize,
		ch:         make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}

	f.mu.Lock()
	f.nextID++
	sub.id = f.nextID
	f.subs[sub.id] = sub
	f.mu.Unlock()

	snap, err := f.snapshot(roomID, windowSize)
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.push(snap)
	return sub, nil
}

// Notify tells the feed that roomID's log changed. Snapshot fan-out happens
// off the caller's goroutine; subscribers on other rooms see nothing.
func (f *Feed) Notify(roomID uint) {
	go f.fanOut(roomID)
}

func (f *Feed) fanOut(roomID uint) {
	if f.cache != nil {
		if err := f.cache.InvalidateRoom(roomID); err != nil {
			log.Printf("feed: invalidate room=%d: %v", roomID, err)
		}
	}

	f.mu.RLock()
	targets := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		if sub.roomID == roomID {
			targets = append(targets, sub)
		}
	}
	f.mu.RUnlock()

	for _, sub := range targets {
		snap, err := f.snapshot(roomID, sub.WindowSize())
		if err != nil {
			log.Printf("feed: snapshot room=%d: %v", roomID, err)
			continue
		}
		sub.push(snap)
	}
}

// snapshot renders a full window for subscription delivery. It reads the
// store directly: snapshots ordered behind a mutation must reflect it, and
// the cache-aside path cannot promise that under concurrent fan-outs.
func (f *Feed) snapshot(roomID uint, windowSize int) (Snapshot, error) {
	messages, err := f.repo.FindWindow(roomID, f.clampWindow(windowSize))
	if err != nil {
		return Snapshot{}, err
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}

	return Snapshot{
		RoomID:     roomID,
		WindowSize: windowSize,
		Empty:      len(messages) == 0,
		Messages:   responses,
		Days:       GroupByDay(messages),
	}, nil
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}

// subscriberCount reports how many subscriptions currently watch roomID.
func (f *Feed) subscriberCount(roomID uint) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, sub := range f.subs {
		if sub.roomID == roomID {
			n++
		}
	}
	return n
}

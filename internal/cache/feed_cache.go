package cache

import (
	"fmt"
	"time"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// WindowTTL bounds staleness of cached feed windows; mutations invalidate
// eagerly, the TTL only backstops missed invalidations.
const WindowTTL = 5 * time.Minute

// FeedCache caches room message windows. All methods tolerate a nil
// receiver or missing Redis so the server can run without a cache.
type FeedCache struct {
	redis *RedisCache
}

func NewFeedCache(redis *RedisCache) *FeedCache {
	return &FeedCache{redis: redis}
}

func windowKey(roomID uint, size int) string {
	return fmt.Sprintf("window:%d:%d", roomID, size)
}

// GetWindow retrieves a cached window for a room at a given size
func (fc *FeedCache) GetWindow(roomID uint, size int) ([]models.Message, bool) {
	if fc == nil || fc.redis == nil {
		return nil, false
	}
	data, err := fc.redis.Get(windowKey(roomID, size))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetWindow caches a window for a room at a given size
func (fc *FeedCache) SetWindow(roomID uint, size int, messages []models.Message) error {
	if fc == nil || fc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return fc.redis.Set(windowKey(roomID, size), data, WindowTTL)
}

// InvalidateRoom drops every cached window of a room
func (fc *FeedCache) InvalidateRoom(roomID uint) error {
	if fc == nil || fc.redis == nil {
		return nil
	}
	return fc.redis.DeletePattern(fmt.Sprintf("window:%d:*", roomID))
}

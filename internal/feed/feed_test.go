package feed

import (
	"sort"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
)

// stubRepo is an in-memory message log. The feed only reads windows from
// it; the remaining interface methods exist to satisfy the contract.
type stubRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages []models.Message
}

func newStubRepo() *stubRepo {
	return &stubRepo{nextID: 1}
}

func (r *stubRepo) add(roomID uint, text string, at time.Time) models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := models.Message{
		ID:        r.nextID,
		RoomID:    roomID,
		Author:    models.Author{UID: 1, Name: "alice"},
		Text:      text,
		CreatedAt: at,
		Version:   1,
	}
	r.nextID++
	r.messages = append(r.messages, msg)
	return msg
}

func (r *stubRepo) FindWindow(roomID uint, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var window []models.Message
	for _, msg := range r.messages {
		if msg.RoomID == roomID {
			window = append(window, msg)
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

func (r *stubRepo) CreateWithProjection(*models.Message) error { return nil }

func (r *stubRepo) FindByID(uint) (*models.Message, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) LoadLikes(uint) (repository.LikeState, int, bool, error) {
	return repository.LikeState{}, 0, false, nil
}

func (r *stubRepo) CommitLikes(uint, repository.LikeState, int) (bool, error) {
	return false, nil
}

func (r *stubRepo) DeleteWithProjection(uint, uint, *models.MessageSummary, bool) error {
	return nil
}

var _ repository.MessageRepositoryInterface = (*stubRepo)(nil)

func receiveSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap := <-sub.Updates():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func day(d int, hour int) time.Time {
	return time.Date(2024, 6, d, hour, 0, 0, 0, time.UTC)
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "hi", day(1, 9))
	repo.add(1, "yo", day(1, 10))
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := receiveSnapshot(t, sub)
	if snap.RoomID != 1 || snap.Empty {
		t.Errorf("snapshot = %+v, want populated room 1", snap)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(snap.Messages))
	}
	if snap.Messages[0].Text != "hi" || snap.Messages[1].Text != "yo" {
		t.Errorf("messages out of order: %q, %q", snap.Messages[0].Text, snap.Messages[1].Text)
	}
}

func TestSubscribeEmptyRoom(t *testing.T) {
	f := New(newStubRepo(), nil)

	sub, err := f.Subscribe(7, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := receiveSnapshot(t, sub)
	if !snap.Empty {
		t.Error("Empty = false, want true for room with no messages")
	}
	if len(snap.Messages) != 0 || len(snap.Days) != 0 {
		t.Errorf("empty snapshot carries content: %+v", snap)
	}
}

func TestNotifyPushesFreshSnapshot(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "hi", day(1, 9))
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	receiveSnapshot(t, sub)

	repo.add(1, "yo", day(1, 10))
	f.Notify(1)

	snap := receiveSnapshot(t, sub)
	if len(snap.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 after notify", len(snap.Messages))
	}
	if snap.Messages[1].Text != "yo" {
		t.Errorf("newest message = %q, want %q", snap.Messages[1].Text, "yo")
	}
}

func TestNotifyOtherRoomDeliversNothing(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "hi", day(1, 9))
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	receiveSnapshot(t, sub)

	repo.add(2, "elsewhere", day(1, 10))
	f.Notify(2)

	select {
	case snap := <-sub.Updates():
		t.Fatalf("received %+v for a foreign room's change", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGrowWindowPrependsOlderPage(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 40; i++ {
		repo.add(1, "m", day(1, 0).Add(time.Duration(i)*time.Minute))
	}
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	first := receiveSnapshot(t, sub)
	if len(first.Messages) != f.PageSize() {
		t.Fatalf("initial window = %d, want %d", len(first.Messages), f.PageSize())
	}

	size, err := sub.GrowWindow()
	if err != nil {
		t.Fatalf("GrowWindow: %v", err)
	}
	if size != 2*f.PageSize() {
		t.Errorf("size = %d, want %d", size, 2*f.PageSize())
	}

	grown := receiveSnapshot(t, sub)
	if len(grown.Messages) != 2*f.PageSize() {
		t.Fatalf("grown window = %d, want %d", len(grown.Messages), 2*f.PageSize())
	}

	// The page joins in front; the previously visible window tails the new
	// one unchanged.
	tail := grown.Messages[len(grown.Messages)-len(first.Messages):]
	for i := range first.Messages {
		if tail[i].ID != first.Messages[i].ID {
			t.Fatalf("message %d moved: id %d, want %d", i, tail[i].ID, first.Messages[i].ID)
		}
	}
	for i := 1; i < len(grown.Messages); i++ {
		if grown.Messages[i].CreatedAt.Before(grown.Messages[i-1].CreatedAt) {
			t.Fatalf("window out of order at %d", i)
		}
	}
}

func TestGrowWindowCapsAtMax(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "hi", day(1, 9))
	f := New(repo, nil)
	f.maxWindow = f.pageSize + 5

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	receiveSnapshot(t, sub)

	size, err := sub.GrowWindow()
	if err != nil {
		t.Fatalf("GrowWindow: %v", err)
	}
	if size != f.maxWindow {
		t.Errorf("size = %d, want cap %d", size, f.maxWindow)
	}

	again, err := sub.GrowWindow()
	if err != nil {
		t.Fatalf("GrowWindow: %v", err)
	}
	if again != f.maxWindow {
		t.Errorf("size after second grow = %d, want cap %d", again, f.maxWindow)
	}
}

func TestSnapshotGroupsByDayFirstOccurrence(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "a", day(1, 22))
	repo.add(1, "b", day(2, 1))
	repo.add(1, "c", day(2, 9))
	repo.add(1, "d", day(3, 8))
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := receiveSnapshot(t, sub)
	if len(snap.Days) != 3 {
		t.Fatalf("len(Days) = %d, want 3", len(snap.Days))
	}
	wantDates := []string{"Sat Jun 01 2024", "Sun Jun 02 2024", "Mon Jun 03 2024"}
	for i, g := range snap.Days {
		if g.Date != wantDates[i] {
			t.Errorf("Days[%d].Date = %q, want %q", i, g.Date, wantDates[i])
		}
	}
	if len(snap.Days[1].Messages) != 2 {
		t.Errorf("middle day holds %d messages, want 2", len(snap.Days[1].Messages))
	}
	if snap.Days[1].Messages[0].Text != "b" || snap.Days[1].Messages[1].Text != "c" {
		t.Error("arrival order lost inside day bucket")
	}
}

func TestPushCoalescesToLatest(t *testing.T) {
	repo := newStubRepo()
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	receiveSnapshot(t, sub)

	sub.push(Snapshot{RoomID: 1, WindowSize: 10})
	sub.push(Snapshot{RoomID: 1, WindowSize: 20})
	sub.push(Snapshot{RoomID: 1, WindowSize: 30})

	snap := receiveSnapshot(t, sub)
	if snap.WindowSize != 30 {
		t.Errorf("WindowSize = %d, want latest 30", snap.WindowSize)
	}
	select {
	case extra := <-sub.Updates():
		t.Fatalf("stale snapshot survived coalescing: %+v", extra)
	default:
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "hi", day(1, 9))
	f := New(repo, nil)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	receiveSnapshot(t, sub)

	if n := f.subscriberCount(1); n != 1 {
		t.Fatalf("subscriberCount = %d, want 1", n)
	}

	sub.Close()
	sub.Close() // idempotent

	if n := f.subscriberCount(1); n != 0 {
		t.Errorf("subscriberCount = %d after Close, want 0", n)
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done not closed after Close")
	}

	sub.push(Snapshot{RoomID: 1})
	select {
	case snap := <-sub.Updates():
		t.Fatalf("received %+v after Close", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

// cannedCache always serves one fixed window, standing in for a cache entry
// re-filled by a racing fan-out after the room's log moved on.
type cannedCache struct {
	mu          sync.Mutex
	window      []models.Message
	invalidated int
	setCalls    int
}

func (c *cannedCache) GetWindow(roomID uint, size int) ([]models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window, c.window != nil
}

func (c *cannedCache) SetWindow(roomID uint, size int, messages []models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	return nil
}

func (c *cannedCache) InvalidateRoom(roomID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return nil
}

func TestSubscriptionSnapshotsBypassStaleCache(t *testing.T) {
	repo := newStubRepo()
	stale := repo.add(1, "old", day(1, 9))
	repo.add(1, "new", day(1, 10))

	// The cache still holds the one-message window from before "new" landed.
	cc := &cannedCache{window: []models.Message{stale}}
	f := New(repo, cc)

	sub, err := f.Subscribe(1, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := receiveSnapshot(t, sub)
	if len(snap.Messages) != 2 {
		t.Fatalf("initial snapshot has %d messages, want 2 from the store", len(snap.Messages))
	}

	repo.add(1, "newer", day(1, 11))
	f.Notify(1)

	snap = receiveSnapshot(t, sub)
	if len(snap.Messages) != 3 || snap.Messages[2].Text != "newer" {
		t.Fatalf("fan-out snapshot = %d messages (last %q), want 3 ending in %q",
			len(snap.Messages), snap.Messages[len(snap.Messages)-1].Text, "newer")
	}

	cc.mu.Lock()
	invalidated, setCalls := cc.invalidated, cc.setCalls
	cc.mu.Unlock()
	if invalidated == 0 {
		t.Error("fan-out never invalidated the room's cached windows")
	}
	if setCalls != 0 {
		t.Errorf("subscription path wrote %d cache entries, want 0", setCalls)
	}

	// The pull path still serves the cache.
	window, err := f.Window(1, 0)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(window) != 1 {
		t.Errorf("Window returned %d messages, want the 1 cached", len(window))
	}
}

func TestGroupByDayEmptyWindow(t *testing.T) {
	groups := GroupByDay(nil)
	if len(groups) != 0 {
		t.Errorf("groups = %v, want empty", groups)
	}
}

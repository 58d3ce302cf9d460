package feed

import "sync"

// Subscription is one live window onto one room. Snapshots arrive on
// Updates with latest-wins coalescing: a slow reader only ever skips
// intermediate states, never sees them out of order.
type Subscription struct {
	id     uint64
	feed   *Feed
	roomID uint

	mu         sync.Mutex
	windowSize int

	ch        chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) RoomID() uint {
	return s.roomID
}

func (s *Subscription) WindowSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowSize
}

// Updates delivers window snapshots. The channel is never closed; readers
// select on Done to notice teardown.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// GrowWindow widens the window by one page increment and re-issues the
// query. The previously visible messages stay in place at the end of the
// window; the older page is prepended in front of them. The new snapshot is
// queued on Updates and the new window size returned, so the presentation
// layer can compare content extents and keep the reader's scroll anchor.
func (s *Subscription) GrowWindow() (int, error) {
	s.mu.Lock()
	size := s.windowSize + s.feed.pageSize
	if size > s.feed.maxWindow {
		size = s.feed.maxWindow
	}
	s.windowSize = size
	s.mu.Unlock()

	snap, err := s.feed.snapshot(s.roomID, size)
	if err != nil {
		return size, err
	}
	s.push(snap)
	return size, nil
}

// Close tears the subscription down. After Close returns no further
// snapshot is queued; pushes racing with Close are dropped.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.feed.remove(s.id)
		close(s.done)
	})
}

func (s *Subscription) push(snap Snapshot) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case <-s.done:
			return
		case s.ch <- snap:
			return
		default:
		}
		// Buffer full: displace the stale snapshot.
		select {
		case <-s.ch:
		default:
		}
	}
}

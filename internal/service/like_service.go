package service

import (
	"github.com/vibechat/vibechat-backend/internal/optimistic"
	"github.com/vibechat/vibechat-backend/internal/repository"
)

type LikeService struct {
	messageRepo repository.MessageRepositoryInterface
	notifier    Notifier
	maxAttempts int
}

func NewLikeService(messageRepo repository.MessageRepositoryInterface, notifier Notifier) *LikeService {
	return &LikeService{
		messageRepo: messageRepo,
		notifier:    notifier,
		maxAttempts: optimistic.DefaultMaxAttempts,
	}
}

// likesStore adapts the message repository to the optimistic primitive.
type likesStore struct {
	repo repository.MessageRepositoryInterface
}

func (s likesStore) Load(id uint) (repository.LikeState, int, bool, error) {
	return s.repo.LoadLikes(id)
}

func (s likesStore) Commit(id uint, state repository.LikeState, expectedVersion int) (bool, error) {
	return s.repo.CommitLikes(id, state, expectedVersion)
}

// ToggleLike flips userID's membership in the message's like set and keeps
// the denormalized count in step. A message deleted underneath the toggle is
// a silent no-op (liked=false, nil error). Concurrent togglers are serialized
// by the conditional write; after too many conflicts the caller gets
// optimistic.ErrExhausted and may simply retry the action.
func (s *LikeService) ToggleLike(messageID, userID uint) (bool, error) {
	var liked bool

	state, applied, err := optimistic.Mutate(likesStore{s.messageRepo}, messageID,
		func(cur repository.LikeState, found bool) (repository.LikeState, bool) {
			if !found {
				return cur, false
			}
			if cur.Likes[userID] {
				delete(cur.Likes, userID)
				// Decrement only alongside an actual removal, so a
				// replayed transform can never drive the count negative.
				if cur.LikeCount > 0 {
					cur.LikeCount--
				}
				liked = false
			} else {
				if cur.Likes == nil {
					cur.Likes = make(map[uint]bool)
				}
				cur.Likes[userID] = true
				cur.LikeCount++
				liked = true
			}
			return cur, true
		}, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	if s.notifier != nil {
		s.notifier.Notify(state.RoomID)
	}
	return liked, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"github.com/vibechat/vibechat-backend/internal/validation"
	"gorm.io/gorm"
)

// ObjectRemover is the narrow seam into the binary object store used for
// attachment cleanup. Removing an object that is already gone must succeed.
type ObjectRemover interface {
	Remove(ctx context.Context, locator string) error
}

// DeleteResult reports the outcome of a delete. The log removal and
// projection repair are authoritative; a failed attachment purge leaves
// Deleted true and is surfaced separately.
type DeleteResult struct {
	Deleted               bool `json:"deleted"`
	AttachmentPurgeFailed bool `json:"attachment_purge_failed"`
}

type DeletionService struct {
	messageRepo repository.MessageRepositoryInterface
	objects     ObjectRemover
	notifier    Notifier
}

func NewDeletionService(messageRepo repository.MessageRepositoryInterface, objects ObjectRemover, notifier Notifier) *DeletionService {
	return &DeletionService{
		messageRepo: messageRepo,
		objects:     objects,
		notifier:    notifier,
	}
}

// Delete removes a message and repairs the room's last-message projection.
//
// windowIDs is the caller's current view of the room window, oldest first.
// Whether the target is the room's tail is decided from that view, not from
// a fresh read: a message arriving between the caller rendering its window
// and this call can make the repair write a stale summary, which the next
// send or delete overwrites. Callers without a window (plain REST clients)
// may pass nil and get the store's current tail window as their view.
//
// The row removal and projection repair commit in one transaction; the
// attachment purge afterwards is best-effort and never fails the delete.
func (s *DeletionService) Delete(ctx context.Context, roomID, messageID uint, windowIDs []uint) (DeleteResult, error) {
	target, err := s.messageRepo.FindByID(messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DeleteResult{}, ErrMessageNotFound
	}
	if err != nil {
		return DeleteResult{}, err
	}
	if target.RoomID != roomID {
		return DeleteResult{}, ErrMessageNotFound
	}

	if len(windowIDs) == 0 {
		window, err := s.messageRepo.FindWindow(roomID, validation.DefaultPageSize())
		if err != nil {
			return DeleteResult{}, err
		}
		for _, m := range window {
			windowIDs = append(windowIDs, m.ID)
		}
	}

	isTail := len(windowIDs) > 0 && windowIDs[len(windowIDs)-1] == messageID

	var repair *models.MessageSummary
	repairProjection := isTail
	if isTail && len(windowIDs) > 1 {
		penultimate, err := s.messageRepo.FindByID(windowIDs[len(windowIDs)-2])
		if err == nil {
			repair = penultimate.Summarize()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return DeleteResult{}, err
		}
		// A concurrently deleted penultimate falls through to a null
		// projection, same as deleting the sole message.
	}

	err = s.messageRepo.DeleteWithProjection(messageID, roomID, repair, repairProjection)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DeleteResult{}, ErrMessageNotFound
	}
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%w: %v", ErrBatchWriteFailed, err)
	}

	result := DeleteResult{Deleted: true}

	if s.notifier != nil {
		s.notifier.Notify(roomID)
	}

	if target.File != nil {
		if s.objects == nil {
			log.Printf("attachment purge skipped, storage not configured: message=%d locator=%s", messageID, target.File.URL)
			result.AttachmentPurgeFailed = true
		} else if err := s.objects.Remove(ctx, target.File.URL); err != nil {
			log.Printf("attachment purge failed: message=%d locator=%s err=%v", messageID, target.File.URL, err)
			result.AttachmentPurgeFailed = true
		}
	}

	return result, nil
}

package service

import (
	"github.com/vibechat/vibechat-backend/internal/optimistic"
	"github.com/vibechat/vibechat-backend/internal/repository"
)

type AdminService struct {
	roomRepo    repository.RoomRepositoryInterface
	maxAttempts int
}

func NewAdminService(roomRepo repository.RoomRepositoryInterface) *AdminService {
	return &AdminService{
		roomRepo:    roomRepo,
		maxAttempts: optimistic.DefaultMaxAttempts,
	}
}

type adminsStore struct {
	repo repository.RoomRepositoryInterface
}

func (s adminsStore) Load(id uint) (map[uint]bool, int, bool, error) {
	return s.repo.LoadAdmins(id)
}

func (s adminsStore) Commit(id uint, admins map[uint]bool, expectedVersion int) (bool, error) {
	return s.repo.CommitAdmins(id, admins, expectedVersion)
}

// ToggleAdmin flips userID's membership in the room's admin set. A room with
// no admin bucket at all is left untouched (granted=false): unlike message
// likes, a missing set here is never seeded by a toggle.
func (s *AdminService) ToggleAdmin(roomID, userID uint) (bool, error) {
	var granted bool

	_, applied, err := optimistic.Mutate(adminsStore{s.roomRepo}, roomID,
		func(admins map[uint]bool, found bool) (map[uint]bool, bool) {
			if !found || admins == nil {
				return admins, false
			}
			if admins[userID] {
				delete(admins, userID)
				// Revoking the last admin removes the bucket itself, so
				// the room reverts to the no-bucket state where toggles
				// no-op until the bucket is re-seeded.
				if len(admins) == 0 {
					admins = nil
				}
				granted = false
			} else {
				admins[userID] = true
				granted = true
			}
			return admins, true
		}, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	return granted, nil
}

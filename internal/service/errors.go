package service

import "errors"

var (
	// ErrInvalidMessage reports a send payload rejected by validation. The
	// wrapped reason is safe to echo to the client.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrMessageNotFound reports a delete targeting an already-gone message.
	ErrMessageNotFound = errors.New("message not found")

	// ErrRoomNotFound reports a lookup of a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrBatchWriteFailed wraps a store failure on the combined
	// log-removal/projection-repair transaction. Nothing was changed.
	ErrBatchWriteFailed = errors.New("delete batch write failed")
)

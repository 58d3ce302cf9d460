package service

// Notifier is told which room's message log changed so live feeds can
// re-issue their windows. Implementations must not block the caller.
type Notifier interface {
	Notify(roomID uint)
}

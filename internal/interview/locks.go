package interview

import "sync"

// turnLocks admits one in-flight turn per session. Entries are removed on
// unlock so idle sessions hold nothing.
type turnLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newTurnLocks() *turnLocks {
	return &turnLocks{held: make(map[string]struct{})}
}

// TryLock claims the session and reports whether it was free
func (l *turnLocks) TryLock(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[sessionID]; busy {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

// Unlock releases the session
func (l *turnLocks) Unlock(sessionID string) {
	l.mu.Lock()
	delete(l.held, sessionID)
	l.mu.Unlock()
}

package session

import "sync"

// lockRegistry hands out per-session advisory locks. A lock is a
// non-blocking token: a second acquirer is refused rather than queued,
// because a participant double-submitting should get an immediate
// "turn in progress" answer, not a stale reply later.
type lockRegistry struct {
	mu    sync.Mutex
	held  map[string]struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{held: make(map[string]struct{})}
}

// tryAcquire takes the session's lock if free. Returns false when the
// session already has a turn in flight.
func (r *lockRegistry) tryAcquire(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.held[sessionID]; taken {
		return false
	}
	r.held[sessionID] = struct{}{}
	return true
}

// release frees the session's lock. Releasing an unheld lock is a no-op.
func (r *lockRegistry) release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, sessionID)
}

package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Presence tracks which users are reachable and through which connection
// handle. A handle is the volatile session identifier assigned by the
// transport. The session state itself lives on the user records, guarded by
// the user store's lock; Presence adds the reverse handle-to-username index.
type Presence struct {
	mu       sync.RWMutex
	users    *UserStore
	byHandle map[uint64]string
}

// NewPresence creates a presence tracker bound to the given user store.
func NewPresence(users *UserStore) *Presence {
	return &Presence{
		users:    users,
		byHandle: make(map[uint64]string),
	}
}

// MarkOnline records that username is reachable through handle. Any previous
// handle is evicted: at most one live handle exists per user, and a second
// concurrent login silently takes over addressability without closing the
// first connection.
func (p *Presence) MarkOnline(username string, handle uint64) {
	prev, ok := p.users.setSession(username, handle)
	if !ok {
		return
	}

	p.mu.Lock()
	if prev != 0 {
		delete(p.byHandle, prev)
	}
	p.byHandle[handle] = username
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"username": username,
		"handle":   handle,
	}).Debug("User marked online")
}

// MarkOffline flips the user owning handle to offline and clears the stored
// handle. A handle that never completed login, or that was already evicted by
// a reconnect, is a no-op.
func (p *Presence) MarkOffline(handle uint64) {
	p.mu.Lock()
	username, ok := p.byHandle[handle]
	if ok {
		delete(p.byHandle, handle)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	p.users.clearSession(username, handle)

	logrus.WithField("username", username).Debug("User marked offline")
}

// HandleFor resolves a username to its live handle. The second return is
// false when the user is offline or unknown.
func (p *Presence) HandleFor(username string) (uint64, bool) {
	return p.users.sessionHandle(username)
}

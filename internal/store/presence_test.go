package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresenceWithUser(t *testing.T, username string) (*Presence, *UserStore) {
	t.Helper()
	users := NewUserStore()
	_, err := users.Register(username, "pw")
	require.NoError(t, err)
	return NewPresence(users), users
}

func TestMarkOnlineStoresHandle(t *testing.T) {
	p, users := newPresenceWithUser(t, "alice")

	p.MarkOnline("alice", 7)

	user, _ := users.Get("alice")
	assert.True(t, user.Online)
	assert.EqualValues(t, 7, user.Handle)

	handle, online := p.HandleFor("alice")
	assert.True(t, online)
	assert.EqualValues(t, 7, handle)
}

func TestSecondLoginEvictsFirstHandle(t *testing.T) {
	p, _ := newPresenceWithUser(t, "alice")

	p.MarkOnline("alice", 1)
	p.MarkOnline("alice", 2)

	handle, online := p.HandleFor("alice")
	assert.True(t, online)
	assert.EqualValues(t, 2, handle)

	// Closing the first, stale connection must not knock the user offline.
	p.MarkOffline(1)
	handle, online = p.HandleFor("alice")
	assert.True(t, online)
	assert.EqualValues(t, 2, handle)
}

func TestMarkOfflineClearsPresence(t *testing.T) {
	p, users := newPresenceWithUser(t, "alice")

	p.MarkOnline("alice", 3)
	p.MarkOffline(3)

	user, _ := users.Get("alice")
	assert.False(t, user.Online)
	assert.Zero(t, user.Handle)

	_, online := p.HandleFor("alice")
	assert.False(t, online)
}

func TestMarkOfflineUnknownHandleIsNoOp(t *testing.T) {
	p, users := newPresenceWithUser(t, "alice")

	p.MarkOnline("alice", 3)
	p.MarkOffline(99)

	user, _ := users.Get("alice")
	assert.True(t, user.Online)
}

func TestMarkOnlineUnknownUserIsNoOp(t *testing.T) {
	users := NewUserStore()
	p := NewPresence(users)

	p.MarkOnline("ghost", 5)

	_, online := p.HandleFor("ghost")
	assert.False(t, online)
}

func TestPresenceUpdatesAreSafeUnderConcurrentReads(t *testing.T) {
	p, users := newPresenceWithUser(t, "alice")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 200; i++ {
			p.MarkOnline("alice", i)
			p.MarkOffline(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if user, ok := users.Get("alice"); ok {
				_ = user.Online
				_ = user.Handle
			}
			p.HandleFor("alice")
		}
	}()
	wg.Wait()

	_, online := p.HandleFor("alice")
	assert.False(t, online)
}

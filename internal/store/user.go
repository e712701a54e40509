// Package store holds the in-memory state of the chat service: user
// identities, friend relationships, and conversation history. All stores are
// safe for concurrent use, although the event loop serializes mutations in
// normal operation.
package store

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// MinUsernameLength is the shortest username Register accepts.
const MinUsernameLength = 3

// avatarPalette is the fixed set of avatars assigned at account creation.
var avatarPalette = []string{"😀", "😎", "🤠", "😍", "🥳", "🤩", "😊", "🐱", "🐶", "🦊"}

// RandomAvatar picks a uniform-random avatar from the fixed palette.
func RandomAvatar() string {
	return avatarPalette[rand.Intn(len(avatarPalette))]
}

// AvatarPalette returns a copy of the fixed avatar set.
func AvatarPalette() []string {
	return append([]string(nil), avatarPalette...)
}

// User is a snapshot of a registered or auto-provisioned identity. Username
// and Avatar are immutable after creation; Handle and Online reflect the
// session state at the moment the snapshot was taken.
type User struct {
	Username     string
	Avatar       string
	PasswordHash []byte
	Handle       uint64
	Online       bool
}

// UserStore keeps user records keyed by username and preserves insertion
// order for search results. All session state on the records is guarded by
// the store's lock; accessors hand out copies, never the shared record.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
	order []string
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*User)}
}

// Register creates a new user with a freshly assigned avatar and returns a
// snapshot of it. It fails with ErrUsernameTaken or ErrUsernameTooShort; the
// password is stored as a bcrypt hash and checked on later logins.
func (s *UserStore) Register(username, password string) (User, error) {
	if len(username) < MinUsernameLength {
		return User{}, ErrUsernameTooShort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := &User{
		Username:     username,
		Avatar:       RandomAvatar(),
		PasswordHash: hash,
	}
	s.users[username] = user
	s.order = append(s.order, username)

	logrus.WithFields(logrus.Fields{
		"username": username,
		"avatar":   user.Avatar,
	}).Info("User registered")

	return *user, nil
}

// Authenticate loads a user for login. Unknown usernames are auto-provisioned
// through the registration path so first-time visitors can log straight in;
// known usernames must present the password they registered with.
func (s *UserStore) Authenticate(username, password string) (User, error) {
	s.mu.RLock()
	record, exists := s.users[username]
	var snapshot User
	if exists {
		snapshot = *record
	}
	s.mu.RUnlock()

	if !exists {
		provisioned, err := s.Register(username, password)
		if err == ErrUsernameTaken {
			// Lost a race with a concurrent provision; fall through to a
			// normal credential check.
			return s.Authenticate(username, password)
		}
		return provisioned, err
	}

	if err := bcrypt.CompareHashAndPassword(snapshot.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return snapshot, nil
}

// Get returns a snapshot of the user record for a username.
func (s *UserStore) Get(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	return *user, true
}

// setSession records handle as the user's live session and returns the handle
// it replaces. The second return is false for unknown usernames.
func (s *UserStore) setSession(username string, handle uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return 0, false
	}
	prev := user.Handle
	user.Handle = handle
	user.Online = true
	return prev, true
}

// clearSession flips the user offline if handle still owns the session; a
// reconnect may already have claimed the user.
func (s *UserStore) clearSession(username string, handle uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok || user.Handle != handle {
		return false
	}
	user.Handle = 0
	user.Online = false
	return true
}

// sessionHandle returns the user's live handle. The second return is false
// when the user is offline or unknown.
func (s *UserStore) sessionHandle(username string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok || !user.Online || user.Handle == 0 {
		return 0, false
	}
	return user.Handle, true
}

// Search returns snapshots of up to limit users whose username contains the
// query, case-insensitively, excluding the requester. Results follow store
// insertion order. A limit <= 0 means no cap.
func (s *UserStore) Search(query, exclude string, limit int) []User {
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []User
	for _, username := range s.order {
		if username == exclude {
			continue
		}
		if !strings.Contains(strings.ToLower(username), needle) {
			continue
		}
		results = append(results, *s.users[username])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

package store

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FriendRequest is a pending request awaiting acceptance, stored on the
// recipient's queue in arrival order.
type FriendRequest struct {
	From       string `json:"from"`
	FromAvatar string `json:"fromAvatar"`
	Timestamp  int64  `json:"timestamp"`
}

// FriendStore tracks pending friend requests and established friendships.
// Friendships are symmetric: every edge is kept as two mirrored entries.
type FriendStore struct {
	mu          sync.RWMutex
	requests    map[string][]FriendRequest
	friendships map[string]map[string]struct{}
}

// NewFriendStore creates an empty FriendStore.
func NewFriendStore() *FriendStore {
	return &FriendStore{
		requests:    make(map[string][]FriendRequest),
		friendships: make(map[string]map[string]struct{}),
	}
}

// AddRequest queues a friend request from one user to another. Re-sending
// before acceptance is idempotent: at most one outstanding request exists per
// ordered (from, to) pair. Requests between established friends fail with
// ErrAlreadyFriends.
func (s *FriendStore) AddRequest(from, fromAvatar, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friendships[from][to]; ok {
		return ErrAlreadyFriends
	}

	for _, req := range s.requests[to] {
		if req.From == from {
			return nil
		}
	}
	s.requests[to] = append(s.requests[to], FriendRequest{
		From:       from,
		FromAvatar: fromAvatar,
		Timestamp:  time.Now().UnixMilli(),
	})

	logrus.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
	}).Info("Friend request queued")
	return nil
}

// AcceptRequest promotes the pending request from requester into a symmetric
// friendship and removes only the matching (requester, accepter) entry from
// the accepter's queue. Other pending requests are untouched.
func (s *FriendStore) AcceptRequest(accepter, requester string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.link(accepter, requester)
	s.link(requester, accepter)
	s.removeRequest(accepter, requester)

	logrus.WithFields(logrus.Fields{
		"accepter":  accepter,
		"requester": requester,
	}).Info("Friendship established")
}

// RejectRequest drops the pending request from requester without creating a
// friendship. It returns true if a matching request was removed.
func (s *FriendStore) RejectRequest(accepter, requester string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeRequest(accepter, requester)
}

func (s *FriendStore) link(a, b string) {
	set, ok := s.friendships[a]
	if !ok {
		set = make(map[string]struct{})
		s.friendships[a] = set
	}
	set[b] = struct{}{}
}

func (s *FriendStore) removeRequest(owner, from string) bool {
	queue := s.requests[owner]
	for i, req := range queue {
		if req.From == from {
			s.requests[owner] = append(queue[:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

// Friends returns the usernames the given user is friends with, in no
// particular order.
func (s *FriendStore) Friends(username string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.friendships[username]
	friends := make([]string, 0, len(set))
	for friend := range set {
		friends = append(friends, friend)
	}
	return friends
}

// AreFriends reports whether a friendship exists between the two users.
func (s *FriendStore) AreFriends(a, b string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friendships[a][b]
	return ok
}

// PendingRequests returns the user's queued friend requests in arrival order.
// The result is never nil, so it serializes as an array on the wire.
func (s *FriendStore) PendingRequests(username string) []FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]FriendRequest, len(s.requests[username]))
	copy(requests, s.requests[username])
	return requests
}

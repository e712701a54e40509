package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequestIsIdempotentPerOrderedPair(t *testing.T) {
	s := NewFriendStore()

	require.NoError(t, s.AddRequest("alice", "😀", "bob"))
	require.NoError(t, s.AddRequest("alice", "😀", "bob"))

	requests := s.PendingRequests("bob")
	require.Len(t, requests, 1, "duplicate requests must coalesce")
	assert.Equal(t, "alice", requests[0].From)
	assert.Equal(t, "😀", requests[0].FromAvatar)
	assert.NotZero(t, requests[0].Timestamp)
}

func TestAcceptRequestEstablishesSymmetricFriendship(t *testing.T) {
	s := NewFriendStore()

	s.AddRequest("bob", "😎", "alice")
	s.AcceptRequest("alice", "bob")

	assert.True(t, s.AreFriends("alice", "bob"))
	assert.True(t, s.AreFriends("bob", "alice"))
	assert.Contains(t, s.Friends("alice"), "bob")
	assert.Contains(t, s.Friends("bob"), "alice")
	assert.Empty(t, s.PendingRequests("alice"))
}

func TestAcceptRequestRemovesOnlyMatchingPair(t *testing.T) {
	s := NewFriendStore()

	s.AddRequest("bob", "😎", "alice")
	s.AddRequest("carol", "🦊", "alice")

	s.AcceptRequest("alice", "bob")

	remaining := s.PendingRequests("alice")
	require.Len(t, remaining, 1)
	assert.Equal(t, "carol", remaining[0].From)
}

func TestRejectRequestDropsPendingWithoutFriendship(t *testing.T) {
	s := NewFriendStore()

	s.AddRequest("bob", "😎", "alice")
	assert.True(t, s.RejectRequest("alice", "bob"))

	assert.Empty(t, s.PendingRequests("alice"))
	assert.False(t, s.AreFriends("alice", "bob"))

	// Rejecting again is a no-op.
	assert.False(t, s.RejectRequest("alice", "bob"))
}

func TestPendingRequestsPreserveArrivalOrder(t *testing.T) {
	s := NewFriendStore()

	s.AddRequest("bob", "😎", "alice")
	s.AddRequest("carol", "🦊", "alice")
	s.AddRequest("dave", "🐶", "alice")

	requests := s.PendingRequests("alice")
	require.Len(t, requests, 3)
	assert.Equal(t, "bob", requests[0].From)
	assert.Equal(t, "carol", requests[1].From)
	assert.Equal(t, "dave", requests[2].From)
}

func TestAddRequestRejectsExistingFriend(t *testing.T) {
	s := NewFriendStore()

	require.NoError(t, s.AddRequest("bob", "😎", "alice"))
	s.AcceptRequest("alice", "bob")

	assert.ErrorIs(t, s.AddRequest("bob", "😎", "alice"), ErrAlreadyFriends)
	assert.ErrorIs(t, s.AddRequest("alice", "😀", "bob"), ErrAlreadyFriends)
}

func TestPendingRequestsNeverNil(t *testing.T) {
	s := NewFriendStore()

	requests := s.PendingRequests("alice")
	assert.NotNil(t, requests)
	assert.Empty(t, requests)
}

func TestAreFriendsFalseForStrangers(t *testing.T) {
	s := NewFriendStore()
	assert.False(t, s.AreFriends("alice", "bob"))
	assert.Empty(t, s.Friends("alice"))
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice_carol", ConversationKey("alice", "carol"))
	assert.Equal(t, "alice_carol", ConversationKey("carol", "alice"))
	assert.Equal(t, ConversationKey("bob", "alice"), ConversationKey("alice", "bob"))
}

func TestAppendAndHistoryRoundTrip(t *testing.T) {
	s := NewMemoryMessageStore()

	_, err := s.Append("alice", "😀", "bob", "hello")
	require.NoError(t, err)
	msg, err := s.Append("alice", "😀", "bob", "hi")
	require.NoError(t, err)

	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "bob", msg.To)
	assert.Equal(t, "hi", msg.Text)
	assert.NotZero(t, msg.Timestamp)
	assert.NotEmpty(t, msg.Time)

	history, err := s.History("alice", "bob")
	require.NoError(t, err)
	require.Len(t, history, 2)

	last := history[len(history)-1]
	assert.Equal(t, "alice", last.From)
	assert.Equal(t, "bob", last.To)
	assert.Equal(t, "hi", last.Text)
}

func TestHistoryIsIdenticalRegardlessOfQueryDirection(t *testing.T) {
	s := NewMemoryMessageStore()

	_, err := s.Append("alice", "😀", "bob", "one")
	require.NoError(t, err)
	_, err = s.Append("bob", "😎", "alice", "two")
	require.NoError(t, err)

	ab, err := s.History("alice", "bob")
	require.NoError(t, err)
	ba, err := s.History("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	require.Len(t, ab, 2)
	assert.Equal(t, "one", ab[0].Text)
	assert.Equal(t, "two", ab[1].Text)
}

func TestHistoryEmptyForUnknownPair(t *testing.T) {
	s := NewMemoryMessageStore()

	history, err := s.History("alice", "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConversationsAreIsolatedByPair(t *testing.T) {
	s := NewMemoryMessageStore()

	_, err := s.Append("alice", "😀", "bob", "for bob")
	require.NoError(t, err)
	_, err = s.Append("alice", "😀", "carol", "for carol")
	require.NoError(t, err)

	bob, err := s.History("bob", "alice")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, "for bob", bob[0].Text)

	carol, err := s.History("carol", "alice")
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Equal(t, "for carol", carol[0].Text)
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteMessageStore {
	t.Helper()
	s, err := NewSQLiteMessageStore(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteAppendAndHistory(t *testing.T) {
	s := newSQLiteStore(t)

	msg, err := s.Append("alice", "😀", "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "bob", msg.To)

	history, err := s.History("bob", "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
	assert.Equal(t, "😀", history[0].FromAvatar)
	assert.NotZero(t, history[0].Timestamp)
}

func TestSQLiteHistoryOrderIndependence(t *testing.T) {
	s := newSQLiteStore(t)

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
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.db")

	s, err := NewSQLiteMessageStore(path)
	require.NoError(t, err)
	_, err = s.Append("alice", "😀", "bob", "persisted")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteMessageStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.History("alice", "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "persisted", history[0].Text)
}

func TestMemoryAndSQLiteBackendsAgree(t *testing.T) {
	backends := map[string]MessageStore{
		"memory": NewMemoryMessageStore(),
		"sqlite": newSQLiteStore(t),
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Append("alice", "😀", "bob", "hello")
			require.NoError(t, err)

			history, err := backend.History("bob", "alice")
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, "hello", history[0].Text)
		})
	}
}

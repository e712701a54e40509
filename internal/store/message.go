package store

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Message is a single chat message. Private messages carry the recipient in
// To; global messages leave it empty. Messages are immutable once stored.
type Message struct {
	From       string `json:"from"`
	FromAvatar string `json:"fromAvatar"`
	To         string `json:"to,omitempty"`
	Text       string `json:"text"`
	Time       string `json:"time"`
	Timestamp  int64  `json:"timestamp"`
}

// ConversationKey derives the identifier for a 2-party thread: the two
// usernames sorted lexicographically and joined with an underscore. The key
// is independent of who asks and of message direction.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// NewMessage stamps a message with the current wall-clock time, both as a
// human-readable time of day and a millisecond epoch.
func NewMessage(from, fromAvatar, to, text string) Message {
	now := time.Now()
	return Message{
		From:       from,
		FromAvatar: fromAvatar,
		To:         to,
		Text:       text,
		Time:       now.Format("15:04:05"),
		Timestamp:  now.UnixMilli(),
	}
}

// MessageStore is the conversation history repository. The default backend is
// in-memory; a SQLite-backed implementation can be swapped in without the
// handlers noticing.
type MessageStore interface {
	// Append stores a private message under the pair's conversation key and
	// returns the stamped message.
	Append(from, fromAvatar, to, text string) (Message, error)
	// History returns the full conversation between two users in insertion
	// order. History(a, b) and History(b, a) are identical.
	History(a, b string) ([]Message, error)
	// Close releases any resources held by the backend.
	Close() error
}

// MemoryMessageStore keeps conversation logs in process memory. History is
// lost on restart.
type MemoryMessageStore struct {
	mu            sync.RWMutex
	conversations map[string][]Message
}

// NewMemoryMessageStore creates an empty in-memory message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{conversations: make(map[string][]Message)}
}

// Append implements MessageStore.
func (s *MemoryMessageStore) Append(from, fromAvatar, to, text string) (Message, error) {
	msg := NewMessage(from, fromAvatar, to, text)
	key := ConversationKey(from, to)

	s.mu.Lock()
	s.conversations[key] = append(s.conversations[key], msg)
	s.mu.Unlock()

	return msg, nil
}

// History implements MessageStore.
func (s *MemoryMessageStore) History(a, b string) ([]Message, error) {
	key := ConversationKey(a, b)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.conversations[key]...), nil
}

// Close implements MessageStore. It is a no-op for the memory backend.
func (s *MemoryMessageStore) Close() error {
	return nil
}

package store

import "sync"

// ReplayBuffer retains the most recent global chat messages so late joiners
// see some context. It is a fixed-capacity ring: once full, the oldest entry
// is dropped for each new one.
type ReplayBuffer struct {
	mu       sync.RWMutex
	messages []Message
	capacity int
}

// NewReplayBuffer creates a ring holding at most capacity messages. A
// capacity <= 0 disables retention entirely.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	return &ReplayBuffer{capacity: capacity}
}

// Add appends a message, evicting the oldest when the ring is full.
func (r *ReplayBuffer) Add(msg Message) {
	if r.capacity <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	if len(r.messages) > r.capacity {
		r.messages = r.messages[len(r.messages)-r.capacity:]
	}
}

// Messages returns the retained messages, oldest first.
func (r *ReplayBuffer) Messages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message(nil), r.messages...)
}

// Len returns the number of retained messages.
func (r *ReplayBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}

package events

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent events in a fixed-size ring.
// Ordering is append order; once the ring is full the oldest entry is
// overwritten. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	ring  []StoredEvent
	next  int
	count int
	seq   int64
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryStore{ring: make([]StoredEvent, capacity)}
}

func (s *MemoryStore) Append(ctx context.Context, e Event) error {
	payload, err := e.MarshalData()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.ring[s.next] = StoredEvent{
		Seq:     s.seq,
		Type:    e.Type(),
		Ts:      e.Timestamp(),
		Editor:  e.Editor(),
		Payload: payload,
	}
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	return nil
}

// Recent returns up to n events, newest first.
func (s *MemoryStore) Recent(n int) []StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]StoredEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

// Len returns the number of retained events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

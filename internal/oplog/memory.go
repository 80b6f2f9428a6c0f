package oplog

import "sync"

// MemoryStore keeps the history in process memory. With a positive
// capacity the oldest entries are evicted once the bound is exceeded;
// capacity <= 0 keeps everything.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewMemoryStore creates an in-memory store with the given capacity.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

// Append adds an entry, evicting the oldest if over capacity.
func (s *MemoryStore) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if s.capacity > 0 && len(s.entries) > s.capacity {
		overflow := len(s.entries) - s.capacity
		s.entries = append([]Entry(nil), s.entries[overflow:]...)
	}
	return nil
}

// Recent returns the last min(limit, len) entries in insertion order.
// Entries are copied so callers cannot mutate the log.
func (s *MemoryStore) Recent(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return []Entry{}, nil
	}
	start := len(s.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// Count returns the number of retained entries.
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

var _ Store = (*MemoryStore)(nil)

package memory

import "sync"

// Store keeps persisted slots in process memory.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewStore() *Store {
	return &Store{
		slots: make(map[string][]byte),
	}
}

func (s *Store) SeedSlot(slot string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = append([]byte{}, data...)
}

package credentials

import "sync"

// MemoryStore — хранилище в памяти; используется в тестах и в сценариях,
// где персистентность не нужна.
type MemoryStore struct {
	mu      sync.Mutex
	pair    Pair
	present bool
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(p Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = p
	s.present = true

	return nil
}

func (s *MemoryStore) Read() (Pair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pair, s.present, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = Pair{}
	s.present = false

	return nil
}

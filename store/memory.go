package store

import (
	"maps"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps highscores in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[int]decimal.Decimal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[int]decimal.Decimal)}
}

func (m *MemoryStore) Get(level int) (decimal.Decimal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[level]
	return s, ok, nil
}

func (m *MemoryStore) All() (map[int]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.scores), nil
}

func (m *MemoryStore) Submit(level int, score decimal.Decimal) (Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.scores[level]
	u := decide(cur, ok, score)
	if u.Accepted {
		m.scores[level] = score
	}
	return u, nil
}

func (m *MemoryStore) Close() error { return nil }

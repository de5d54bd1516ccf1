package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// JsonFileStore keeps highscores in a single JSON file that is rewritten
// on every accepted update.
//
// Layout:
//
//	data_dir/
//	  highscores.json   # {"3": 20, "7": 12.5}
type JsonFileStore struct {
	mu   sync.RWMutex
	path string
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{path: filepath.Join(dir, "highscores.json")}, nil
}

func (s *JsonFileStore) load() (map[int]decimal.Decimal, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]decimal.Decimal{}, nil
		}
		return nil, err
	}
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	result := make(map[int]decimal.Decimal, len(raw))
	for k, v := range raw {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse %s: bad level key %q", s.path, k)
		}
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, fmt.Errorf("parse %s: level %d: %w", s.path, level, err)
		}
		result[level] = d
	}
	return result, nil
}

func (s *JsonFileStore) save(scores map[int]decimal.Decimal) error {
	raw := make(map[string]json.Number, len(scores))
	for level, d := range scores {
		raw[strconv.Itoa(level)] = json.Number(d.String())
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *JsonFileStore) Get(level int) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores, err := s.load()
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	d, ok := scores[level]
	return d, ok, nil
}

func (s *JsonFileStore) All() (map[int]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *JsonFileStore) Submit(level int, score decimal.Decimal) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores, err := s.load()
	if err != nil {
		return Update{}, err
	}
	cur, ok := scores[level]
	u := decide(cur, ok, score)
	if !u.Accepted {
		return u, nil
	}
	scores[level] = score
	if err := s.save(scores); err != nil {
		return Update{}, err
	}
	return u, nil
}

func (s *JsonFileStore) Close() error { return nil }

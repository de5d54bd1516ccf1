package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// SqliteStore keeps highscores in a SQLite database.
//
// Tables:
//
//	highscores(level, score)  PRIMARY KEY (level)
//
// Scores are stored as decimal text so no precision is lost.
type SqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS highscores (
		level INTEGER PRIMARY KEY,
		score TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) get(level int) (decimal.Decimal, bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT score FROM highscores WHERE level = ?", level).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("level %d: %w", level, err)
	}
	return d, true, nil
}

func (s *SqliteStore) Get(level int) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(level)
}

func (s *SqliteStore) All() (map[int]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query("SELECT level, score FROM highscores")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[int]decimal.Decimal)
	for rows.Next() {
		var level int
		var raw string
		if err := rows.Scan(&level, &raw); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		result[level] = d
	}
	return result, rows.Err()
}

func (s *SqliteStore) Submit(level int, score decimal.Decimal) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok, err := s.get(level)
	if err != nil {
		return Update{}, err
	}
	u := decide(cur, ok, score)
	if !u.Accepted {
		return u, nil
	}
	_, err = s.db.Exec(
		`INSERT INTO highscores (level, score) VALUES (?, ?)
		 ON CONFLICT(level) DO UPDATE SET score = excluded.score`,
		level, score.String(),
	)
	if err != nil {
		return Update{}, err
	}
	return u, nil
}

package store

import (
	"fmt"
	"path/filepath"
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"memory" - in-memory, lost on restart (default)
//	"json"   - dataDir/highscores.json
//	"sqlite" - SQLite database at dataDir/highscores.db
func New(backend, dataDir string) (Store, error) {
	switch backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "json":
		return NewJsonFileStore(dataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(dataDir, "highscores.db"))
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: memory, json, sqlite)", backend)
	}
}

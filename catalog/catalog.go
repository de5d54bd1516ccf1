// Package catalog reads the on-disk collection of numbered level documents.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"

	"github.com/stevemurr/puzzle-level-server/schema"
)

// levelFile matches the names counted as levels.
var levelFile = regexp.MustCompile(`^level[0-9]+\.json$`)

// ErrNoLevels is returned when a random level is requested from an empty catalog.
var ErrNoLevels = errors.New("no levels available")

// LevelNotFoundError reports a level index outside [1, Count()].
type LevelNotFoundError struct {
	Level int
}

func (e *LevelNotFoundError) Error() string {
	return fmt.Sprintf("Puzzle %d doesn't exist.", e.Level)
}

// LevelFormatError reports a level file that is not valid JSON or
// violates the configured level schema.
type LevelFormatError struct {
	Level int
	Err   error
}

func (e *LevelFormatError) Error() string {
	return fmt.Sprintf("level %d is malformed: %v", e.Level, e.Err)
}

func (e *LevelFormatError) Unwrap() error { return e.Err }

// Catalog is a read-only view of a levels directory.
//
// Layout:
//
//	levels/
//	  level1.json
//	  level2.json
//	  ...
//
// The count is recomputed on every call; files may be added while the
// server runs.
type Catalog struct {
	dir    string
	schema map[string]any
}

// New returns a Catalog over dir. The directory is not read until the
// first request.
func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// WithSchema makes Load validate every level document against s.
func (c *Catalog) WithSchema(s map[string]any) *Catalog {
	c.schema = s
	return c
}

// Dir returns the levels directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Count returns the number of level files in the directory.
func (c *Catalog) Count() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read levels dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if levelFile.MatchString(e.Name()) {
			n++
		}
	}
	return n, nil
}

func (c *Catalog) levelPath(level int) string {
	return filepath.Join(c.dir, fmt.Sprintf("level%d.json", level))
}

// Load returns the raw document of a level. Indices below 1 or above
// Count() yield a *LevelNotFoundError.
func (c *Catalog) Load(level int) (json.RawMessage, error) {
	count, err := c.Count()
	if err != nil {
		return nil, err
	}
	if level < 1 || level > count {
		return nil, &LevelNotFoundError{Level: level}
	}

	data, err := os.ReadFile(c.levelPath(level))
	if err != nil {
		return nil, fmt.Errorf("read level %d: %w", level, err)
	}
	if !json.Valid(data) {
		return nil, &LevelFormatError{Level: level, Err: errors.New("invalid JSON")}
	}
	if c.schema != nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &LevelFormatError{Level: level, Err: err}
		}
		if err := schema.Validate(c.schema, doc); err != nil {
			return nil, &LevelFormatError{Level: level, Err: err}
		}
	}
	return json.RawMessage(data), nil
}

// Picker draws an integer uniformly from [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// DefaultPicker uses the process-wide math/rand/v2 source, which is safe
// for concurrent use.
var DefaultPicker Picker = globalPicker{}

// Random picks a level index uniformly from [1, Count()] using rng.
func (c *Catalog) Random(rng Picker) (int, error) {
	count, err := c.Count()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNoLevels
	}
	return rng.IntN(count) + 1, nil
}

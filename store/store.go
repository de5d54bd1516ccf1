// Package store defines the highscore store interface and its backends.
package store

import "github.com/shopspring/decimal"

// NoScore is reported for a level without a recorded highscore.
var NoScore = decimal.NewFromInt(-1)

// Update is the outcome of a Submit call.
type Update struct {
	// Accepted is true when the submitted score replaced the stored one.
	Accepted bool
	// Old is the previous best, or NoScore if the level had none.
	Old decimal.Decimal
	// New is the best score after the call.
	New decimal.Decimal
}

// Store is the interface every highscore backend implements.
// Lower scores are better. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the best score for a level and whether one exists.
	Get(level int) (decimal.Decimal, bool, error)

	// All returns every recorded highscore keyed by level.
	All() (map[int]decimal.Decimal, error)

	// Submit records score for level if no score exists yet or the
	// stored one is strictly greater. The read-compare-write is atomic.
	Submit(level int, score decimal.Decimal) (Update, error)

	// Close releases backend resources.
	Close() error
}

// decide applies the minimisation policy to the current state of a level.
func decide(cur decimal.Decimal, exists bool, score decimal.Decimal) Update {
	if !exists {
		return Update{Accepted: true, Old: NoScore, New: score}
	}
	if cur.GreaterThan(score) {
		return Update{Accepted: true, Old: cur, New: score}
	}
	return Update{Accepted: false, Old: cur, New: cur}
}

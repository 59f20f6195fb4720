package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedRecord marks a stored warning row that could not be used.
var ErrMalformedRecord = errors.New("models: malformed warning record")

// Never is the LastWarning value of a record without offenses.
var Never = time.Time{}

// PlayerWarning is the offense history of one player.
type PlayerWarning struct {
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	Count       int       `json:"count"`
	LastWarning time.Time `json:"last_warning"`
}

// NewPlayerWarning returns a clean record.
func NewPlayerWarning(playerID, playerName string) PlayerWarning {
	return PlayerWarning{PlayerID: playerID, PlayerName: playerName, LastWarning: Never}
}

// AddWarning increments the counter and stamps now.
func (w *PlayerWarning) AddWarning(now time.Time) {
	w.Count++
	w.LastWarning = now
}

// Reset zeroes the record. The player identity is kept.
func (w *PlayerWarning) Reset() {
	w.Count = 0
	w.LastWarning = Never
}

// Clean reports whether the record carries no offenses.
func (w PlayerWarning) Clean() bool {
	return w.Count == 0
}

// IdleFor returns the time elapsed since the last offense. A record that was
// never warned is idle forever.
func (w PlayerWarning) IdleFor(now time.Time) time.Duration {
	if w.LastWarning.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(w.LastWarning)
}

// Validate checks a record loaded from storage and repairs what can be
// repaired: a zero count always carries the Never stamp.
func (w *PlayerWarning) Validate() error {
	if w.PlayerID == "" {
		return fmt.Errorf("%w: empty player id", ErrMalformedRecord)
	}
	if w.Count < 0 {
		return fmt.Errorf("%w: player %s has negative count %d", ErrMalformedRecord, w.PlayerID, w.Count)
	}
	if w.Count == 0 {
		w.LastWarning = Never
	}
	return nil
}

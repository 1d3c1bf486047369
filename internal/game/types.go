// internal/game/types.go
//
// Core type definitions for the Forest Clash card engine.
// Defines:
//   - State:   the per-session counters the cards act on.
//   - Play:    one card played during a session.
//   - Session: a server-held practice session (state + play history).
//   - Winner:  outcome of a finished session.

package game

import (
	"time"

	"github.com/forestclash/go-server/internal/cards"
)

// State holds the counters of a single session.
// The zero value is the initial state: no trees, not blocked.
type State struct {
	PlayerTrees int  `json:"playerTrees"` // never negative
	EnemyTrees  int  `json:"enemyTrees"`  // never negative
	Blocked     bool `json:"blocked"`     // true after a politician until a contract
}

// Play records one card played during a session.
type Play struct {
	CardID string     `json:"cardId"`
	Type   cards.Type `json:"type"`
}

// Winner is the outcome of a session.
type Winner string

const (
	WinnerPlayer Winner = "player"
	WinnerBot    Winner = "bot"
	WinnerDraw   Winner = "draw"
)

// Session is a practice session held in the session store.
type Session struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"` // account id, or anonymous cookie id for guests
	State     State     `json:"state"`
	Plays     []Play    `json:"plays"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// internal/game/engine.go
//
// Card effect state machine.
// Responsibilities:
//   - Apply a single card to a State (pure, no side effects).
//   - Replay a sequence of cards from a starting State.
//   - Drive a Session: apply plays, record history, derive the outcome.
//
// Effects:
//   tree        +value player trees, unless blocked (floored at 0)
//   fire        -1 enemy tree (floored at 0)
//   lumberjack  moves one enemy tree to the player, if the enemy has any
//   politician  blocks planting
//   contract    lifts the block
//   wildfire    clears all enemy trees
//   other       no-op

package game

import (
	"time"

	"github.com/forestclash/go-server/internal/cards"
)

// Apply returns the state that results from playing c on s.
func Apply(s State, c cards.Card) State {
	switch c.Type {
	case cards.Tree:
		if !s.Blocked {
			s.PlayerTrees = max(0, s.PlayerTrees+c.Value)
		}
	case cards.Fire:
		s.EnemyTrees = max(0, s.EnemyTrees-1)
	case cards.Lumberjack:
		if s.EnemyTrees > 0 {
			s.EnemyTrees--
			s.PlayerTrees++
		}
	case cards.Politician:
		s.Blocked = true
	case cards.Contract:
		s.Blocked = false
	case cards.Wildfire:
		s.EnemyTrees = 0
	}
	return s
}

// Replay applies cs in order starting from s.
func Replay(s State, cs ...cards.Card) State {
	for _, c := range cs {
		s = Apply(s, c)
	}
	return s
}

// NewSession constructs an empty session owned by owner.
func NewSession(id, owner string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Owner:     owner,
		Plays:     []Play{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Play applies c to the session and appends it to the history.
func (s *Session) Play(c cards.Card, now time.Time) State {
	s.State = Apply(s.State, c)
	s.Plays = append(s.Plays, Play{CardID: c.ID, Type: c.Type})
	s.UpdatedAt = now
	return s.State
}

// Outcome reports the final scores and winner for the current state.
// The player's score is their tree count; the bot's is the enemy tree count.
func (s *Session) Outcome() (playerScore, botScore int, w Winner) {
	playerScore, botScore = s.State.PlayerTrees, s.State.EnemyTrees
	switch {
	case playerScore > botScore:
		w = WinnerPlayer
	case playerScore < botScore:
		w = WinnerBot
	default:
		w = WinnerDraw
	}
	return playerScore, botScore, w
}

// Elapsed reports how long the session has been running at now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

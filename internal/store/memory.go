// internal/store/memory.go
//
// In-memory store for practice sessions.
// Sessions only live while a player is actively playing; finished sessions
// become game records, idle ones are swept by a background job.
//
// Characteristics:
//   - Stores *game.Session keyed by ID in a map.
//   - Concurrency-safe via RWMutex; Update runs the mutation under the
//     write lock so plays on one session are applied one at a time.
//   - Reads are owner scoped: another owner's session looks absent.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/game"
)

// Store defines the persistence interface for practice sessions.
type Store interface {
	// Save inserts or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get returns a copy of the session if owner matches, else NotFound.
	Get(ctx context.Context, owner, id string) (*game.Session, error)

	// Update runs fn on the stored session under the store lock and
	// returns a copy of the result. fn errors abort without saving.
	Update(ctx context.Context, owner, id string, fn func(*game.Session) error) (*game.Session, error)

	// Delete removes the session if owner matches, else NotFound.
	Delete(ctx context.Context, owner, id string) error

	// Take removes the session and returns it; only one caller can win.
	Take(ctx context.Context, owner, id string) (*game.Session, error)

	// Sweep removes sessions not updated since cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports the number of live sessions.
	Len() int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *memory) Get(ctx context.Context, owner, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return clone(s), nil
}

func (m *memory) Update(ctx context.Context, owner, id string, fn func(*game.Session) error) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	next := clone(s)
	if err := fn(next); err != nil {
		return nil, err
	}
	m.sessions[id] = next
	return clone(next), nil
}

func (m *memory) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(owner, id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

func (m *memory) Take(ctx context.Context, owner, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// lookup must be called with mu held.
func (m *memory) lookup(owner, id string) (*game.Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		return nil, apperr.NotFound("session not found")
	}
	return s, nil
}

func clone(s *game.Session) *game.Session {
	c := *s
	c.Plays = append([]game.Play{}, s.Plays...)
	return &c
}

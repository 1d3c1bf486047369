package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
)

// Memory implements Repository with maps behind one mutex.
// The mutex makes CreateRecord's stats bump and insert a single step.
type Memory struct {
	mu         sync.RWMutex
	accounts   map[string]models.Account
	byEmail    map[string]string // email -> id
	byUsername map[string]string // username -> id
	records    map[string]models.GameRecord
}

// NewMemory constructs an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[string]models.Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		records:    make(map[string]models.GameRecord),
	}
}

func (m *Memory) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, emailTaken := m.byEmail[a.Email]
	_, nameTaken := m.byUsername[a.Username]
	_, idTaken := m.accounts[a.ID]
	if emailTaken || nameTaken || idTaken {
		return apperr.Conflict(msgDuplicateAccount)
	}
	m.accounts[a.ID] = *a
	m.byEmail[a.Email] = a.ID
	m.byUsername[a.Username] = a.ID
	return nil
}

func (m *Memory) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	return &a, nil
}

func (m *Memory) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	return m.AccountByID(ctx, id)
}

func (m *Memory) TopAccounts(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	all := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, a)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Stats.GamesWon != b.Stats.GamesWon {
			return a.Stats.GamesWon > b.Stats.GamesWon
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.LeaderboardEntry, len(all))
	for i, a := range all {
		out[i] = models.LeaderboardEntry{Username: a.Username, Stats: a.Stats}
	}
	return out, nil
}

func (m *Memory) CreateRecord(ctx context.Context, r *models.GameRecord) (models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[r.UserID]
	if !ok {
		return models.Stats{}, apperr.NotFound(msgAccountNotFound)
	}
	a.Stats = a.Stats.Record(r.Winner, r.PlayerScore)
	m.accounts[a.ID] = a
	m.records[r.ID] = copyRecord(*r)
	return a.Stats, nil
}

func (m *Memory) ListRecords(ctx context.Context, userID string, limit int) ([]models.GameRecord, error) {
	m.mu.RLock()
	out := []models.GameRecord{}
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, copyRecord(r))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetRecord(ctx context.Context, userID, id string) (*models.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, apperr.NotFound(msgGameNotFound)
	}
	c := copyRecord(r)
	return &c, nil
}

func (m *Memory) UpdateRecord(ctx context.Context, userID, id string, p models.RecordPatch, now time.Time) (*models.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, apperr.NotFound(msgGameNotFound)
	}
	next := p.ApplyTo(r, now)
	m.records[id] = copyRecord(next)
	return &next, nil
}

func (m *Memory) DeleteRecord(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return apperr.NotFound(msgGameNotFound)
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func copyRecord(r models.GameRecord) models.GameRecord {
	r.Moves = append([]models.Move{}, r.Moves...)
	return r
}

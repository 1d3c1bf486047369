// internal/leaderboard/leaderboard.go
//
// Top accounts by games won. Reads go through an optional snapshot cache;
// the cache is best effort and any cache failure falls back to the store.

package leaderboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/internal/models"
	"github.com/forestclash/go-server/internal/repository"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Cache stores a snapshot of the top MaxLimit entries.
type Cache interface {
	// Load returns ok=false on a miss.
	Load(ctx context.Context) (entries []models.LeaderboardEntry, ok bool, err error)
	Store(ctx context.Context, entries []models.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// Service answers leaderboard queries.
type Service struct {
	repo  repository.Repository
	cache Cache

	// mu orders snapshot writes against invalidations; gen counts invalidations.
	mu  sync.Mutex
	gen uint64
}

// NewService wires a Service. cache may be nil.
func NewService(repo repository.Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Top returns the n best accounts; n <= 0 means DefaultLimit, n is capped at MaxLimit.
func (s *Service) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	n = clampLimit(n)
	if s.cache != nil {
		entries, ok, err := s.cache.Load(ctx)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("leaderboard cache read failed")
		case ok:
			return head(entries, n), nil
		}
	}

	if s.cache == nil {
		return s.repo.TopAccounts(ctx, n)
	}
	entries, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return head(entries, n), nil
}

// Refresh rebuilds the cached snapshot from the store and returns it.
// A snapshot read before a concurrent Invalidate is returned but not cached.
func (s *Service) Refresh(ctx context.Context) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	entries, err := s.repo.TopAccounts(ctx, MaxLimit)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return entries, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return entries, nil
	}
	if err := s.cache.Store(ctx, entries); err != nil {
		log.Warn().Err(err).Msg("leaderboard cache write failed")
	}
	return entries, nil
}

// Invalidate drops the snapshot; records.Service calls it after stats change.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("leaderboard cache invalidate failed")
	}
}

// Cached reports whether a snapshot cache is configured.
func (s *Service) Cached() bool { return s.cache != nil }

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func head(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]models.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out
}

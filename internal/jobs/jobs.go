// internal/jobs/jobs.go
//
// Background maintenance on a gocron scheduler:
//   - sweep idle practice sessions
//   - rebuild the leaderboard snapshot (only when a cache is configured)

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/internal/leaderboard"
	"github.com/forestclash/go-server/internal/store"
)

// Config holds job intervals.
type Config struct {
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	LeaderboardRefresh   time.Duration
}

// Scheduler owns the gocron scheduler; cancel stops in-flight jobs.
type Scheduler struct {
	s      gocron.Scheduler
	cancel context.CancelFunc
}

// New registers the jobs; nothing runs until Start.
func New(cfg Config, sessions store.Store, board *leaderboard.Service) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sc := &Scheduler{s: s, cancel: cancel}

	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = 30 * time.Minute
	}
	if cfg.SessionSweepInterval <= 0 {
		cfg.SessionSweepInterval = time.Minute
	}
	_, err = s.NewJob(
		gocron.DurationJob(cfg.SessionSweepInterval),
		gocron.NewTask(func() { SweepSessions(ctx, sessions, cfg.SessionIdleTTL, time.Now()) }),
		gocron.WithName("sweep-sessions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sc.abort()
		return nil, fmt.Errorf("sweep job: %w", err)
	}

	if board != nil && board.Cached() {
		if cfg.LeaderboardRefresh <= 0 {
			cfg.LeaderboardRefresh = 30 * time.Second
		}
		_, err = s.NewJob(
			gocron.DurationJob(cfg.LeaderboardRefresh),
			gocron.NewTask(func() { RefreshLeaderboard(ctx, board) }),
			gocron.WithName("refresh-leaderboard"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			sc.abort()
			return nil, fmt.Errorf("leaderboard job: %w", err)
		}
	}
	return sc, nil
}

func (sc *Scheduler) Start() {
	sc.s.Start()
	log.Info().Int("jobs", len(sc.s.Jobs())).Msg("scheduler started")
}

// Shutdown cancels running jobs and waits for them to return.
func (sc *Scheduler) Shutdown() error {
	sc.cancel()
	return sc.s.Shutdown()
}

func (sc *Scheduler) abort() {
	sc.cancel()
	_ = sc.s.Shutdown()
}

// SweepSessions drops sessions idle for longer than ttl.
func SweepSessions(ctx context.Context, sessions store.Store, ttl time.Duration, now time.Time) int {
	n := sessions.Sweep(ctx, now.Add(-ttl))
	if n > 0 {
		log.Info().Int("removed", n).Int("remaining", sessions.Len()).Msg("swept idle sessions")
	}
	return n
}

// RefreshLeaderboard rebuilds the snapshot under a short deadline.
func RefreshLeaderboard(ctx context.Context, board *leaderboard.Service) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := board.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("leaderboard refresh failed")
	}
}

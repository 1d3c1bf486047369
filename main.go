// main.go
//
// Entry point for the Forest Clash server.
// Boot order: config → logging → repository → card catalog → optional Redis
// cache → services → scheduler → HTTP. SIGINT/SIGTERM trigger a graceful
// shutdown.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/internal/account"
	"github.com/forestclash/go-server/internal/auth"
	"github.com/forestclash/go-server/internal/cards"
	"github.com/forestclash/go-server/internal/config"
	"github.com/forestclash/go-server/internal/httpserver"
	"github.com/forestclash/go-server/internal/jobs"
	"github.com/forestclash/go-server/internal/leaderboard"
	"github.com/forestclash/go-server/internal/records"
	"github.com/forestclash/go-server/internal/repository"
	"github.com/forestclash/go-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.UsingDevSecret() {
		log.Warn().Msg("using development JWT secret; set AUTH_JWTSECRET or JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(ctx, repository.Options{
		Driver:        cfg.Storage.Driver,
		SQLitePath:    cfg.Storage.SQLitePath,
		MongoURI:      cfg.Storage.MongoURI,
		MongoDatabase: cfg.Storage.MongoDatabase,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open repository")
	}
	defer func() { _ = repo.Close() }()

	catalog, err := cards.Load(cfg.Cards.File)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load card catalog")
	}

	var cache leaderboard.Cache
	if cfg.Redis.Address != "" {
		rc, err := leaderboard.DialRedis(ctx, leaderboard.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Leaderboard.CacheTTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; leaderboard cache disabled")
		} else {
			defer func() { _ = rc.Close() }()
			cache = rc
		}
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth config")
	}
	board := leaderboard.NewService(repo, cache)
	sessions := store.NewMemoryStore()

	sched, err := jobs.New(jobs.Config{
		SessionIdleTTL:       cfg.Sessions.IdleTTL,
		SessionSweepInterval: cfg.Sessions.SweepInterval,
		LeaderboardRefresh:   cfg.Leaderboard.RefreshInterval,
	}, sessions, board)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	sched.Start()

	srv := httpserver.New(httpserver.Deps{
		Accounts:       account.NewService(repo, tokens),
		Records:        records.NewService(repo, board),
		Leaderboard:    board,
		Tokens:         tokens,
		Cards:          catalog,
		Sessions:       sessions,
		Health:         repo,
		ClientOrigin:   cfg.Server.ClientOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
		SecureCookies:  os.Getenv("NODE_ENV") == "production",
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Server.Address).
			Str("storage", cfg.Storage.Driver).
			Int("cards", catalog.Len()).
			Bool("leaderboard_cache", cache != nil).
			Msg("starting forestclash server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
}

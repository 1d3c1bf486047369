// internal/httpserver/server.go
//
// HTTP server wiring for the Forest Clash backend.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, timeouts, JSON, CORS,
//     request logging).
//   - Public endpoints: "/", "/health", /api/leaderboard, /api/cards.
//   - Auth endpoints: /api/auth/register, /api/auth/login, /api/auth/profile.
//   - Game history CRUD (require auth): /api/games.
//   - Practice sessions (optional auth): /api/sessions.
//
// Notes:
//   - Tokens travel in "Authorization: Bearer <token>".
//   - Optional auth decorates requests with the user when a valid token is
//     present; guests are identified by an anonymous cookie.
//   - Require-auth answers 401 without a token and 403 for a bad one.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/forestclash/go-server/internal/account"
	"github.com/forestclash/go-server/internal/auth"
	"github.com/forestclash/go-server/internal/cards"
	"github.com/forestclash/go-server/internal/leaderboard"
	"github.com/forestclash/go-server/internal/records"
	"github.com/forestclash/go-server/internal/store"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Accounts    *account.Service
	Records     *records.Service
	Leaderboard *leaderboard.Service
	Tokens      *auth.Tokens
	Cards       *cards.Catalog
	Sessions    store.Store
	Health      Pinger

	ClientOrigin   string
	RequestTimeout time.Duration
	SecureCookies  bool
}

// Server bundles the router and its dependencies.
type Server struct {
	r *chi.Mux
	Deps
	now func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}
	if d.ClientOrigin == "" {
		d.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), Deps: d, now: time.Now}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(d.RequestTimeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors(d.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Forest Clash API is running",
			"version": "1.0.0",
		})
	})
	s.r.Get("/health", s.handleHealth)

	s.r.Route("/api", func(r chi.Router) {
		s.mountAuth(r)
		s.mountGames(r)
		s.mountSessions(r)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/cards", s.handleCards)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	return s
}

// Handler exposes the router (used by http.Server and tests).
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router.
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := log.Info()
			if status >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("req_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

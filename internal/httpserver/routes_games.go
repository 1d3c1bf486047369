// internal/httpserver/routes_games.go
//
// Game history (all routes require a token; records are owner scoped):
//   - POST   /api/games      → 201 {message, game}
//   - GET    /api/games      → 200 [game] (newest 20)
//   - GET    /api/games/{id} → 200 game
//   - PUT    /api/games/{id} → 200 {message, game}
//   - DELETE /api/games/{id} → 200 {message}
// Plus the public leaderboard and card catalog.

package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
	"github.com/forestclash/go-server/internal/records"
)

func (s *Server) mountGames(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/", s.handleCreateGame)
		r.Get("/", s.handleListGames)
		r.Get("/{id}", s.handleGetGame)
		r.Put("/{id}", s.handleUpdateGame)
		r.Delete("/{id}", s.handleDeleteGame)
	})
}

type gameRes struct {
	Message string             `json:"message"`
	Game    *models.GameRecord `json:"game"`
	Stats   *models.Stats      `json:"stats,omitempty"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in records.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	g, stats, err := s.Records.Create(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gameRes{Message: "Game saved successfully", Game: g, Stats: &stats})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	list, err := s.Records.List(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.Records.Get(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var p models.RecordPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.Records.Update(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Message: "Game updated", Game: g})
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.Records.Delete(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game deleted successfully"})
}

// ------------------------------ public -------------------------------------

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("limit must be a number"))
			return
		}
		n = v
	}
	top, err := s.Leaderboard.Top(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Cards.All())
}

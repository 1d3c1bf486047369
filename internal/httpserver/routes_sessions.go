// internal/httpserver/routes_sessions.go
//
// Server-held practice sessions:
//   - POST /api/sessions             → start a session (guest or user)
//   - GET  /api/sessions/{id}        → current state and plays
//   - POST /api/sessions/{id}/play   → apply one card {cardId}
//   - POST /api/sessions/{id}/finish → save as a game record (requires token)
//
// Sessions are owned by the user id, or by the anonymous cookie for guests.
// Finishing claims a guest session started before login.

package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/game"
	"github.com/forestclash/go-server/internal/models"
	"github.com/forestclash/go-server/internal/records"
)

func (s *Server) mountSessions(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.With(s.withOptionalAuth).Post("/", s.handleNewSession)
		r.With(s.withOptionalAuth).Get("/{id}", s.handleGetSession)
		r.With(s.withOptionalAuth).Post("/{id}/play", s.handlePlay)
		r.With(s.requireAuth).Post("/{id}/finish", s.handleFinish)
	})
}

// sessionOwner is the user id for authenticated callers, else the guest id.
func (s *Server) sessionOwner(w http.ResponseWriter, r *http.Request) string {
	if me := userFrom(r.Context()); me != nil {
		return me.ID
	}
	return "anon:" + s.ensureAnonID(w, r)
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess := game.NewSession(models.NewID(), s.sessionOwner(w, r), s.now().UTC())
	if err := s.Sessions.Save(r.Context(), sess); err != nil {
		writeError(w, r, apperr.Wrap(err, "save session"))
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), s.sessionOwner(w, r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type playReq struct {
	CardID string `json:"cardId"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := strings.TrimSpace(req.CardID)
	if id == "" {
		writeError(w, r, apperr.Validation("cardId is required"))
		return
	}
	card, ok := s.Cards.Lookup(id)
	if !ok {
		writeError(w, r, apperr.Validation("unknown card: %s", id))
		return
	}

	sess, err := s.Sessions.Update(r.Context(), s.sessionOwner(w, r), chi.URLParam(r, "id"),
		func(gs *game.Session) error {
			gs.Play(card, s.now().UTC())
			return nil
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	id := chi.URLParam(r, "id")

	owner := me.ID
	sess, err := s.Sessions.Take(r.Context(), owner, id)
	if apperr.Is(err, apperr.KindNotFound) {
		if anon := anonID(r); anon != "" {
			owner = "anon:" + anon
			sess, err = s.Sessions.Take(r.Context(), owner, id)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, stats, err := s.Records.Create(r.Context(), me.ID, finishInput(sess, s.now()))
	if err != nil {
		// put it back so the player can retry
		if serr := s.Sessions.Save(r.Context(), sess); serr != nil {
			writeError(w, r, apperr.Wrap(serr, "restore session"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gameRes{Message: "Game saved successfully", Game: g, Stats: &stats})
}

// finishInput turns a session into a record submission.
func finishInput(sess *game.Session, now time.Time) records.CreateInput {
	player, bot, winner := sess.Outcome()
	moves := make([]models.Move, len(sess.Plays))
	for i, p := range sess.Plays {
		moves[i] = models.Move{CardID: p.CardID, Type: string(p.Type), By: "player"}
	}
	return records.CreateInput{
		PlayerScore: player,
		BotScore:    bot,
		Winner:      models.Winner(winner),
		Duration:    int(sess.Elapsed(now).Seconds()),
		Moves:       moves,
	}
}

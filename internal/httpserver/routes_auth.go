// internal/httpserver/routes_auth.go
//
// Account endpoints and the auth middlewares.
//   - POST /api/auth/register → 201 {message, token, user}
//   - POST /api/auth/login    → 200 {message, token, user}
//   - GET  /api/auth/profile  → 200 account (requires token)

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forestclash/go-server/internal/account"
	"github.com/forestclash/go-server/internal/auth"
	"github.com/forestclash/go-server/internal/models"
)

// authUser is placed into request context by the auth middlewares.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

func userFrom(ctx context.Context) *authUser {
	u, _ := ctx.Value(ctxUserKey{}).(*authUser)
	return u
}

func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.requireAuth).Get("/auth/profile", s.handleProfile)
}

// userView is the account as returned by register and login.
type userView struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Stats    models.Stats `json:"stats"`
}

type sessionRes struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userView `json:"user"`
}

func newSessionRes(msg string, sess *account.Session) sessionRes {
	a := sess.Account
	return sessionRes{
		Message: msg,
		Token:   sess.Token,
		User:    userView{ID: a.ID, Username: a.Username, Email: a.Email, Stats: a.Stats},
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.Accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionRes("User created successfully", sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in account.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.Accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionRes("Login successful", sess))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	a, err := s.Accounts.Profile(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ----------------------------- middleware ----------------------------------

// requireAuth rejects requests without a valid token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.Tokens.Verify(auth.FromRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: claims.ID, Username: claims.Username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withOptionalAuth attaches the user when a valid token is present and
// otherwise lets the request through as a guest.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := auth.FromRequest(r); tok != "" {
			if claims, err := s.Tokens.Verify(tok); err == nil {
				ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: claims.ID, Username: claims.Username})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

const anonCookieName = "forestclash_anon"

// anonID returns the guest cookie value, or "" when absent.
func anonID(r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id := anonID(r); id != "" {
		return id
	}
	id := models.NewID()
	sameSite := http.SameSiteLaxMode
	if s.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: sameSite,
		Expires:  s.now().Add(180 * 24 * time.Hour),
	})
	return id
}

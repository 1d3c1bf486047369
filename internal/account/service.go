// internal/account/service.go
//
// Registration, login and profile lookup.
// Passwords are bcrypt hashed before they reach the repository; the hash is
// never serialized. Login answers unknown emails and wrong passwords with the
// same Unauthorized error.

package account

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/auth"
	"github.com/forestclash/go-server/internal/models"
	"github.com/forestclash/go-server/internal/repository"
)

const msgBadCredentials = "invalid email or password"

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is an account plus a freshly issued token.
type Session struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"user"`
}

// Service implements the account operations.
type Service struct {
	repo   repository.Repository
	tokens *auth.Tokens
	cost   int
	now    func() time.Time

	// compared against for unknown emails so both login failures cost one bcrypt run
	dummyHash []byte
}

// Option customizes a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a Service.
func NewService(repo repository.Repository, tokens *auth.Tokens, opts ...Option) *Service {
	s := &Service{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("forestclash-dummy-password"), s.cost)
	if err != nil {
		log.Warn().Err(err).Msg("dummy hash generation failed")
	}
	s.dummyHash = h
	return s
}

// bcrypt rejects longer inputs; the validator max counts runes.
const maxPasswordBytes = 72

// Register creates an account and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Validation("password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Wrap(err, "hash password")
	}
	a := &models.Account{
		ID:           models.NewID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", a.ID).Str("username", a.Username).Msg("account registered")
	return s.session(a)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	a, err := s.repo.AccountByEmail(ctx, in.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	return s.session(a)
}

// Profile returns the account for uid.
func (s *Service) Profile(ctx context.Context, uid string) (*models.Account, error) {
	return s.repo.AccountByID(ctx, uid)
}

func (s *Service) session(a *models.Account) (*Session, error) {
	tok, err := s.tokens.Issue(a.ID, a.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, Account: a}, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

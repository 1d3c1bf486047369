// internal/auth/tokens.go
//
// Signed session tokens (HS256 JWT) carrying the account id and username.
// Verification maps failures onto apperr kinds:
//   - empty token            -> Unauthorized (401)
//   - bad signature/expired  -> Forbidden    (403)

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forestclash/go-server/internal/apperr"
)

// DefaultTTL is used when Tokens is built with a zero TTL.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Tokens issues and verifies tokens with one shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a token service. The secret must not be empty.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("auth: empty token secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the account.
func (t *Tokens) Issue(id, username string) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		ID:       id,
		Username: username,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", apperr.Wrap(err, "sign token")
	}
	return s, nil
}

// Verify checks the signature and expiry and returns the claims.
func (t *Tokens) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.Unauthorized("access token required")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return t.secret, nil
		},
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, apperr.Forbidden("invalid or expired token")
	}
	return claims, nil
}

// FromRequest extracts a bearer token from the Authorization header.
func FromRequest(r *http.Request) string {
	a := r.Header.Get("Authorization")
	if len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

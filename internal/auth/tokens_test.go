package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forestclash/go-server/internal/apperr"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tk, err := NewTokens("s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s, err := tk.Issue("u1", "ash")
	if err != nil {
		t.Fatal(err)
	}
	c, err := tk.Verify(s)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.ID != "u1" || c.Username != "ash" {
		t.Fatalf("claims: got %+v", c)
	}
}

func TestVerifyFailures(t *testing.T) {
	tk, _ := NewTokens("s3cret", time.Hour)
	other, _ := NewTokens("different", time.Hour)
	foreign, _ := other.Issue("u1", "ash")

	expiredIssuer, _ := NewTokens("s3cret", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue("u1", "ash")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  apperr.Kind
	}{
		{"empty", "", apperr.KindUnauthorized},
		{"garbage", "not.a.token", apperr.KindForbidden},
		{"wrong secret", foreign, apperr.KindForbidden},
		{"expired", expired, apperr.KindForbidden},
		{"alg none", none, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tk.Verify(tt.token)
			if got := apperr.KindOf(err); got != tt.want {
				t.Fatalf("got %v (%v), want %v", got, err, tt.want)
			}
		})
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	tk, _ := NewTokens("x", 0)
	if tk.ttl != DefaultTTL {
		t.Fatalf("ttl: got %v, want %v", tk.ttl, DefaultTTL)
	}
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := FromRequest(r); got != tt.want {
			t.Fatalf("%q: got %q, want %q", tt.header, got, tt.want)
		}
	}
}

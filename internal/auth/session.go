// Package auth issues and checks login sessions. A session is an HS256 JWT
// carried in an HttpOnly cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"famledger/internal/cache"
	"famledger/internal/sheets"
)

const (
	CookieName = "famledger_session"
	issuer     = "famledger"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Claims is the session token payload. Subject holds the username.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Sessions signs, verifies and revokes session tokens.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoked *cache.LRUCache[struct{}]

	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// NewSessions returns a session manager. Revoked token ids are remembered in
// revoked until the token would have expired anyway.
func NewSessions(secret []byte, ttl time.Duration, revoked *cache.LRUCache[struct{}]) *Sessions {
	if revoked == nil {
		revoked = cache.NewLRUCache[struct{}](cache.Unbounded, ttl)
	}
	return &Sessions{
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
		revoked: revoked,
	}
}

// RandomSecret returns a fresh 32 byte signing key. Sessions signed with it do
// not survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return b, nil
}

// Issue signs a token for u.
func (s *Sessions) Issue(u sheets.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses a token and checks signature, expiry, issuer and revocation.
func (s *Sessions) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	if _, gone := s.revoked.Get(claims.ID); gone {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}
	return claims, nil
}

// Revoke invalidates the token identified by claims. A revocation is kept
// until the token expires; expired ones are dropped here.
func (s *Sessions) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	s.revoked.CleanExpired()
	s.revoked.SetUntil(claims.ID, struct{}{}, claims.ExpiresAt.Time)
}

// SetCookie writes the session cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie on the client.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// FromRequest verifies the session cookie of r.
func (s *Sessions) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return s.Verify(c.Value)
}

// RequireSession rejects requests without a valid session with 401 and puts
// the logged in user in the request context.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.FromRequest(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				slog.WarnContext(r.Context(), "Rejected session", "component", "auth", "error", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFrom returns the session of the current request, if any.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// UserFrom returns the logged in user of the current request.
func UserFrom(ctx context.Context) (sheets.User, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return sheets.User{}, false
	}
	return sheets.User{Username: c.Subject, Name: c.Name}, true
}

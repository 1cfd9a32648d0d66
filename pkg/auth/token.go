// Package auth is the authentication gate of ProjectHub.
//
// A session is a JWT (HS256) carrying the user id as subject, delivered to browsers in an
// httpOnly cookie. Expiry is the only invalidation mechanism: there is no refresh rotation
// and no revocation list, and logging out clears the cookie.
//
// [Gate.Middleware] resolves the token of each request once and stores the identity in the
// request context, where handlers read it back with [UserFromContext].
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for absent, malformed, badly signed or expired tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Gate issues and verifies session tokens.
type Gate struct {
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	now          func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithTTL overrides SessionTTL.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) { g.ttl = ttl }
}

// WithSecureCookie marks the session cookie Secure, for deployments behind TLS.
func WithSecureCookie(secure bool) Option {
	return func(g *Gate) { g.secureCookie = secure }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate signing with secret.
func NewGate(secret string, opts ...Option) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret must not be empty")
	}
	g := &Gate{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Issue mints a token for userID and returns it with its expiry.
func (g *Gate) Issue(userID models.UserID) (string, time.Time, error) {
	now := g.now()
	expires := now.Add(g.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Resolve verifies token and returns the user it was issued for.
func (g *Gate) Resolve(token string) (models.UserID, error) {
	if token == "" {
		return models.UserID{}, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return models.UserID{}, ErrInvalidToken
	}

	userID, err := models.ParseUserID(claims.Subject)
	if err != nil {
		return models.UserID{}, ErrInvalidToken
	}
	return userID, nil
}

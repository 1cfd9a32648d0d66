package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// CookieName is the name of the session cookie.
const CookieName = "token"

type contextKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, userID models.UserID) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the user resolved for the current request.
func UserFromContext(ctx context.Context) (models.UserID, bool) {
	userID, ok := ctx.Value(contextKey{}).(models.UserID)
	return userID, ok && !userID.IsZero()
}

// SetSession issues a token for userID and writes it as the session cookie.
func (g *Gate) SetSession(w http.ResponseWriter, userID models.UserID) error {
	token, expires, err := g.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(g.ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie.
func (g *Gate) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFromRequest reads the session cookie, falling back to a bearer token for
// non-browser clients.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Middleware attaches the identity of valid sessions to the request context. Requests
// without a valid session pass through unauthenticated; handlers decide whether that
// is acceptable.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, err := g.Resolve(tokenFromRequest(r)); err == nil {
			r = r.WithContext(WithUser(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

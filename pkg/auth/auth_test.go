package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

func newTestGate(t *testing.T, now *time.Time) *Gate {
	t.Helper()
	g, err := NewGate("test-secret", WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return g
}

func TestIssueAndResolve(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)
	userID := models.NewUserID()

	token, expires, err := g.Issue(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(7*24*time.Hour), expires, time.Second)

	got, err := g.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)

	token, _, err := g.Issue(models.NewUserID())
	require.NoError(t, err)

	now = now.Add(SessionTTL + time.Minute)
	_, err = g.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)
	other, err := NewGate("another-secret")
	require.NoError(t, err)

	token, _, err := other.Issue(models.NewUserID())
	require.NoError(t, err)

	_, err = g.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   models.NewUserID().String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = g.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsGarbage(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := g.Resolve(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestNewGateRequiresSecret(t *testing.T) {
	_, err := NewGate("")
	assert.Error(t, err)
}

func TestSetSessionCookie(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)
	rec := httptest.NewRecorder()

	require.NoError(t, g.SetSession(rec, models.NewUserID()))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.NotEmpty(t, c.Value)
}

func TestClearSessionCookie(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)
	rec := httptest.NewRecorder()

	g.ClearSession(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMiddlewareResolvesCookieAndBearer(t *testing.T) {
	now := time.Now()
	g := newTestGate(t, &now)
	userID := models.NewUserID()
	token, _, err := g.Issue(userID)
	require.NoError(t, err)

	var seen models.UserID
	var ok bool
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, userID, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, userID, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tampered"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := h.Check(hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Check(hash, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Check("not-a-hash", "secret1")
	assert.Error(t, err)

	long := strings.Repeat("s", 80)
	_, err = h.Hash(long)
	assert.Error(t, err, "bcrypt refuses more than 72 bytes")
	ok, err = h.Check(hash, "secret1"+long)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewHasherFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).Cost)
	assert.Equal(t, 4, NewHasher(4).Cost)
}

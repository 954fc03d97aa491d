package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", time.Hour, false)
	require.NoError(t, err)
	return m
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func TestIssueAndRead(t *testing.T) {
	m := newManager(t)
	rec := httptest.NewRecorder()
	_, err := m.Issue(rec, "sid-123")
	require.NoError(t, err)

	c := cookieFrom(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	sid, err := m.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "sid-123", sid)
}

func TestRead_Rejects(t *testing.T) {
	m := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := m.Read(req)
	assert.True(t, errors.Is(err, ErrNoSession), "missing cookie")

	// signed with another secret
	other, err := NewManager("other-secret", time.Hour, false)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	_, err = other.Issue(rec, "sid")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec))
	_, err = m.Read(req)
	assert.True(t, errors.Is(err, ErrNoSession), "foreign signature")

	// expired
	rec = httptest.NewRecorder()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, err = m.Issue(rec, "sid")
	require.NoError(t, err)
	m.now = time.Now
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec))
	_, err = m.Read(req)
	assert.True(t, errors.Is(err, ErrNoSession), "expired")

	// garbage
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
	_, err = m.Read(req)
	assert.True(t, errors.Is(err, ErrNoSession), "garbage")
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour, false)
	require.Error(t, err)
}

func TestMiddleware_MintsAndKeepsID(t *testing.T) {
	m := newManager(t)
	var seen []string
	h := m.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, SessionIDFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := cookieFrom(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.Equal(t, seen[0], seen[1])
}

func TestClear(t *testing.T) {
	m := newManager(t)
	rec := httptest.NewRecorder()
	m.Clear(rec)
	c := cookieFrom(t, rec)
	assert.Equal(t, -1, c.MaxAge)
}

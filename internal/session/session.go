package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	CookieName = "survey_session"
	issuer     = "realfake-survey"
)

var ErrNoSession = errors.New("no valid session cookie")

type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager signs and reads the session cookie. The cookie only carries the
// session ID; the state itself lives in a quiz.Store.
type Manager struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager derives the cookie signing key from secret so the raw secret
// is never used directly as an HMAC key.
func NewManager(secret string, ttl time.Duration, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("realfake-survey session cookie v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Manager{key: key, ttl: ttl, secure: secure, now: time.Now}, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// NewID returns a fresh random session ID.
func NewID() string { return uuid.NewString() }

func (m *Manager) sign(sid string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := &Claims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.key)
	return s, exp, err
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || c.SID == "" {
		return nil, errors.New("token has no session id")
	}
	return c, nil
}

// Issue sets a freshly signed cookie for sid, extending its lifetime.
func (m *Manager) Issue(w http.ResponseWriter, sid string) (time.Time, error) {
	tok, exp, err := m.sign(sid)
	if err != nil {
		return time.Time{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return exp, nil
}

// Read returns the session ID from a valid cookie, or ErrNoSession.
func (m *Manager) Read(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return claims.SID, nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

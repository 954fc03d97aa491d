package quiz

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps session state server side, keyed by session ID.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Put(ctx context.Context, id string, s State, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	// PurgeExpired drops sessions that expired before now and reports how many.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || !m.now().Before(e.expiresAt) {
		return State{}, ErrSessionNotFound
	}
	return cloneState(e.state), nil
}

func (m *MemoryStore) Put(_ context.Context, id string, s State, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memoryEntry{state: cloneState(s), expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// cloneState copies the log so callers never share a backing array with the store.
func cloneState(s State) State {
	if s.Predictions != nil {
		s.Predictions = append([]Prediction(nil), s.Predictions...)
	}
	return s
}

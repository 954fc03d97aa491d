package quiz

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/db"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db") + "?_pragma=busy_timeout(5000)"
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return NewSQLStore(h)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "nope")
			assert.True(t, errors.Is(err, ErrSessionNotFound))

			st := Start(time.Unix(1700000000, 0).UTC())
			_, err = st.Record(fourItems(), true, time.Unix(1700000010, 0).UTC())
			require.NoError(t, err)

			require.NoError(t, s.Put(ctx, "sid-1", st, time.Now().Add(time.Hour)))
			got, err := s.Get(ctx, "sid-1")
			require.NoError(t, err)
			assert.Equal(t, st.ImageIndex, got.ImageIndex)
			assert.Equal(t, st.Predictions, got.Predictions)
			assert.True(t, st.StartedAt.Equal(got.StartedAt))
			require.NoError(t, got.Validate(fourItems()))

			// overwrite
			st2 := Start(time.Now())
			require.NoError(t, s.Put(ctx, "sid-1", st2, time.Now().Add(time.Hour)))
			got, err = s.Get(ctx, "sid-1")
			require.NoError(t, err)
			assert.Zero(t, got.ImageIndex)
			assert.Empty(t, got.Predictions)

			require.NoError(t, s.Delete(ctx, "sid-1"))
			_, err = s.Get(ctx, "sid-1")
			assert.True(t, errors.Is(err, ErrSessionNotFound))
		})
	}
}

func TestStore_ExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			require.NoError(t, s.Put(ctx, "old", Start(now), now.Add(-time.Minute)))
			require.NoError(t, s.Put(ctx, "live", Start(now), now.Add(time.Hour)))

			_, err := s.Get(ctx, "old")
			assert.True(t, errors.Is(err, ErrSessionNotFound), "expired sessions are invisible")

			n, err := s.PurgeExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, err = s.Get(ctx, "live")
			assert.NoError(t, err)
		})
	}
}

func TestMemoryStore_DoesNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	st := Start(time.Now())
	_, _ = st.Record(fourItems(), true, time.Now())
	require.NoError(t, s.Put(ctx, "a", st, time.Now().Add(time.Hour)))

	st.Predictions[0].Prediction = false
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Predictions[0].Prediction)
}

type countingStore struct {
	*MemoryStore
	mu     sync.Mutex
	purges int
}

func (c *countingStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	c.purges++
	c.mu.Unlock()
	return c.MemoryStore.PurgeExpired(ctx, now)
}

func TestRunJanitor_StopsWithContext(t *testing.T) {
	s := &countingStore{MemoryStore: NewMemoryStore()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, s, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.purges >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRunJanitor_DisabledReturnsImmediately(t *testing.T) {
	RunJanitor(context.Background(), NewMemoryStore(), 0, zap.NewNop())
}

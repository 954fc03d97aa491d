package syncx_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/realfake-survey/internal/db"
	syncx "github.com/mind-engage/realfake-survey/internal/sync"
)

func TestEventRepo_RecordAndList(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer h.Close()

	repo := syncx.NewEventRepo(h, "")
	require.NoError(t, repo.Record(ctx, syncx.TypeQuizCompleted, "sid-1", map[string]int{"correct": 3}))
	require.NoError(t, repo.Record(ctx, syncx.TypeReportExported, "sid-1", map[string]int{"rows": 4}))
	require.NoError(t, repo.Record(ctx, syncx.TypeQuizCompleted, "sid-2", map[string]int{"correct": 1}))

	events, err := repo.List(ctx, "sid-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, syncx.TypeQuizCompleted, events[0].Type)
	assert.Equal(t, syncx.TypeReportExported, events[1].Type)
	assert.Equal(t, "local", events[0].SiteID)
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.NotZero(t, events[0].CreatedAt)

	var data map[string]int
	require.NoError(t, json.Unmarshal([]byte(events[0].DataJSON), &data))
	assert.Equal(t, 3, data["correct"])
}

func TestDiscard(t *testing.T) {
	var r syncx.Recorder = syncx.Discard{}
	assert.NoError(t, r.Record(context.Background(), "x", "y", nil))
}

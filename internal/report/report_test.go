package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/storage"
)

type seq struct {
	images []string
	labels []bool
}

func (s seq) Len() int { return len(s.images) }
func (s seq) Image(i int) string { return s.images[i] }
func (s seq) Label(i int) bool { return s.labels[i] }

func played(t *testing.T, predictions ...bool) quiz.State {
	t.Helper()
	q := seq{
		images: []string{"a.png", "b.png", "c.png", "d.png"},
		labels: []bool{true, false, true, false},
	}
	st := quiz.Start(time.Unix(1700000000, 0))
	for _, p := range predictions {
		_, err := st.Record(q, p, time.Now())
		require.NoError(t, err)
	}
	return st
}

func TestWrite_OneRowPerPredictionInOrder(t *testing.T) {
	st := played(t, true, false, false)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Rows(st)))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"path", "label", "prediction"},
		{"a.png", "1", "1"},
		{"b.png", "0", "0"},
		{"c.png", "1", "0"},
	}, recs)
}

func TestWrite_EmptyIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "path,label,prediction\n", buf.String())
}

func TestExporter_RoundTrip(t *testing.T) {
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(blobs)

	k1, err := e.Export(context.Background(), played(t, true, true))
	require.NoError(t, err)
	k2, err := e.Export(context.Background(), played(t, true, true))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "reports/"))

	obj, err := e.Open(k1)
	require.NoError(t, err)
	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.NoError(t, obj.Close())
	assert.Equal(t, "path,label,prediction\na.png,1,1\nb.png,0,1\n", string(b))

	require.NoError(t, e.Remove(k1))
	_, err = e.Open(k1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	n, err := e.SweepOlderThan(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExporter_NoPredictionsIsHeaderOnly(t *testing.T) {
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(blobs)
	key, err := e.Export(context.Background(), played(t))
	require.NoError(t, err)

	obj, err := e.Open(key)
	require.NoError(t, err)
	defer obj.Close()
	b, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "path,label,prediction\n", string(b))
}

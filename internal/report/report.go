package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/storage"
)

const prefix = "reports"

// Filename is the attachment name offered to the browser.
const Filename = "report.csv"

var header = []string{"path", "label", "prediction"}

type Row struct {
	Path       string
	Label      bool
	Prediction bool
}

// Rows returns one row per recorded prediction, in image order.
func Rows(s quiz.State) []Row {
	out := make([]Row, 0, len(s.Predictions))
	for _, p := range s.Predictions {
		out = append(out, Row{Path: p.Image, Label: p.Label, Prediction: p.Prediction})
	}
	return out
}

// Write emits the CSV header and rows with booleans as 0/1.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Path, bit(r.Label), bit(r.Prediction)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Exporter writes reports to uniquely named blobs in a scratch store.
type Exporter struct {
	blobs storage.BlobStore
}

func NewExporter(blobs storage.BlobStore) *Exporter {
	return &Exporter{blobs: blobs}
}

// Export writes the session's report and returns its blob key. A session
// with no predictions yields a header-only file.
func (e *Exporter) Export(_ context.Context, s quiz.State) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, Rows(s)); err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s.csv", prefix, uuid.NewString())
	if _, err := e.blobs.Put(key, &buf); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	return key, nil
}

func (e *Exporter) Open(key string) (*storage.Object, error) { return e.blobs.Get(key) }

func (e *Exporter) Remove(key string) error { return e.blobs.Delete(key) }

// SweepOlderThan removes report files left behind by earlier runs.
func (e *Exporter) SweepOlderThan(age time.Duration) (int, error) {
	return e.blobs.Sweep(prefix, time.Now().Add(-age))
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/realfake-survey/internal/quiz"
	"github.com/mind-engage/realfake-survey/internal/session"
	syncx "github.com/mind-engage/realfake-survey/internal/sync"
)

const maxPredictBody = 1 << 10

type PredictRequest struct {
	Prediction *bool `json:"prediction"`
}

type PredictResponse struct {
	ImageIndex int    `json:"image_index"`
	Prediction bool   `json:"prediction"`
	NewURL     string `json:"new_url"`
}

// PredictionError reports a request body that is not {"prediction": bool}.
type PredictionError struct {
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed prediction: %s: %v", e.Reason, e.Err)
	}
	return "malformed prediction: " + e.Reason
}

func (e *PredictionError) Unwrap() error { return e.Err }

// DecodePrediction reads and validates a prediction payload.
func DecodePrediction(r io.Reader) (bool, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var req PredictRequest
	if err := dec.Decode(&req); err != nil {
		return false, &PredictionError{Reason: "bad json", Err: err}
	}
	if dec.More() {
		return false, &PredictionError{Reason: "trailing data after object"}
	}
	if req.Prediction == nil {
		return false, &PredictionError{Reason: "prediction is required"}
	}
	return *req.Prediction, nil
}

// POST /predict/  {"prediction": true|false}
func PredictHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := session.SessionIDFromContext(ctx)

		prediction, err := DecodePrediction(http.MaxBytesReader(w, r.Body, maxPredictBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		st, err := app.loadState(ctx, sid)
		if err != nil {
			switch {
			case errors.Is(err, quiz.ErrSessionNotFound):
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "no quiz in progress", NewURL: imagePath(0)})
			case errors.Is(err, quiz.ErrCorruptState):
				app.Sessions.Clear(w)
				writeJSON(w, http.StatusConflict, errorBody{Error: "session reset", NewURL: "/"})
			default:
				app.Log.Error("load session", zap.String("sid", sid), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session store error"})
			}
			return
		}

		index := st.ImageIndex
		out, err := st.Record(app.Deck, prediction, app.now())
		if errors.Is(err, quiz.ErrQuizDone) {
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), NewURL: "/done"})
			return
		}
		if err := app.saveState(ctx, sid, st); err != nil {
			app.Log.Error("save session", zap.String("sid", sid), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session store error"})
			return
		}
		app.Log.Debug("prediction recorded",
			zap.String("sid", sid),
			zap.Int("image_index", index),
			zap.Bool("prediction", prediction),
			zap.Bool("correct", out.Correct))

		newURL := imagePath(out.ImageIndex)
		if out.Done {
			newURL = "/done"
			if err := app.Events.Record(ctx, syncx.TypeQuizCompleted, sid, st.Summary()); err != nil {
				app.Log.Warn("record event", zap.String("type", syncx.TypeQuizCompleted), zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, PredictResponse{
			ImageIndex: out.ImageIndex,
			Prediction: out.Prediction,
			NewURL:     newURL,
		})
	}
}

package quiz

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrQuizDone     = errors.New("quiz already finished")
	ErrCorruptState = errors.New("session state is inconsistent")
)

// Start returns the state for index 0: every tally zero, empty log.
func Start(now time.Time) State {
	return State{
		Predictions: []Prediction{},
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Record applies one judgment for the current image and advances the index.
// A judgment is correct when it matches the curator label, for real and
// fake items alike.
func (s *State) Record(seq Sequence, prediction bool, now time.Time) (Outcome, error) {
	if s.ImageIndex >= seq.Len() {
		return Outcome{ImageIndex: s.ImageIndex, Prediction: prediction, Done: true}, ErrQuizDone
	}
	i := s.ImageIndex
	label := seq.Label(i)
	correct := prediction == label

	if label {
		s.RealPredictions++
		if correct {
			s.RealCorrect++
		}
	} else {
		s.FakePredictions++
		if correct {
			s.FakeCorrect++
		}
	}
	s.Predictions = append(s.Predictions, Prediction{
		Index:      i,
		Image:      seq.Image(i),
		Label:      label,
		Prediction: prediction,
		Correct:    correct,
	})
	s.ImageIndex++
	s.UpdatedAt = now

	return Outcome{
		ImageIndex: s.ImageIndex,
		Prediction: prediction,
		Correct:    correct,
		Done:       s.ImageIndex >= seq.Len(),
	}, nil
}

func (s State) Done(seq Sequence) bool { return s.ImageIndex >= seq.Len() }

// Validate checks the state against seq. Stored state crosses a process
// boundary and the deck may have been rebuilt since it was written.
func (s State) Validate(seq Sequence) error {
	if s.ImageIndex < 0 || s.ImageIndex > seq.Len() {
		return fmt.Errorf("%w: index %d outside [0,%d]", ErrCorruptState, s.ImageIndex, seq.Len())
	}
	if len(s.Predictions) != s.RealPredictions+s.FakePredictions {
		return fmt.Errorf("%w: %d logged predictions, %d counted",
			ErrCorruptState, len(s.Predictions), s.RealPredictions+s.FakePredictions)
	}
	if len(s.Predictions) != s.ImageIndex {
		return fmt.Errorf("%w: %d logged predictions at index %d", ErrCorruptState, len(s.Predictions), s.ImageIndex)
	}
	if s.RealCorrect > s.RealPredictions || s.FakeCorrect > s.FakePredictions {
		return fmt.Errorf("%w: more correct than judged", ErrCorruptState)
	}
	for i, p := range s.Predictions {
		if p.Index != i || p.Image != seq.Image(i) || p.Label != seq.Label(i) {
			return fmt.Errorf("%w: log entry %d does not match the quiz", ErrCorruptState, i)
		}
	}
	return nil
}

func (s State) Summary() Summary {
	sum := Summary{
		RealPredictions: s.RealPredictions,
		FakePredictions: s.FakePredictions,
		RealCorrect:     s.RealCorrect,
		FakeCorrect:     s.FakeCorrect,
		Total:           s.RealPredictions + s.FakePredictions,
		Correct:         s.RealCorrect + s.FakeCorrect,
	}
	sum.Accuracy = ratio(sum.Correct, sum.Total)
	sum.RealAccuracy = ratio(s.RealCorrect, s.RealPredictions)
	sum.FakeAccuracy = ratio(s.FakeCorrect, s.FakePredictions)
	return sum
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

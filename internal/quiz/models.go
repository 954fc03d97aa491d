package quiz

import "time"

// Sequence is the read-only quiz the respondent walks through.
// *labels.Deck satisfies it.
type Sequence interface {
	Len() int
	Image(i int) string
	Label(i int) bool
}

type Prediction struct {
	Index      int    `json:"index"`
	Image      string `json:"image"`
	Label      bool   `json:"label"`      // true = real
	Prediction bool   `json:"prediction"` // true = judged real
	Correct    bool   `json:"correct"`
}

// State is everything a session carries between requests.
type State struct {
	ImageIndex int `json:"image_index"`

	RealPredictions int `json:"real_predictions"`
	FakePredictions int `json:"fake_predictions"`
	RealCorrect     int `json:"real_correct"`
	FakeCorrect     int `json:"fake_correct"`

	Predictions []Prediction `json:"predictions"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome is what a single submission produced.
type Outcome struct {
	ImageIndex int  `json:"image_index"` // index after advancing
	Prediction bool `json:"prediction"`
	Correct    bool `json:"correct"`
	Done       bool `json:"done"`
}

type Summary struct {
	RealPredictions int     `json:"real_predictions"`
	FakePredictions int     `json:"fake_predictions"`
	RealCorrect     int     `json:"real_correct"`
	FakeCorrect     int     `json:"fake_correct"`
	Total           int     `json:"total"`
	Correct         int     `json:"correct"`
	Accuracy        float64 `json:"accuracy"`
	RealAccuracy    float64 `json:"real_accuracy"`
	FakeAccuracy    float64 `json:"fake_accuracy"`
}

package ml

import "time"

// Prediction is one classification outcome.
type Prediction struct {
	Label         string
	Confidence    float64
	Probabilities map[string]float64
	InferenceTime time.Duration
}

// Classifier is the lifecycle of an inference backend. The concrete model
// format stays behind this boundary so the fusion logic never depends on it.
type Classifier interface {
	Load(path string) error
	Predict(features []float64) (Prediction, error)
	Close()
}

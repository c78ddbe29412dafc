package ml

import "errors"

var ErrNotLoaded = errors.New("artifact not loaded")

// Scaler rescales the continuous segment of a feature vector.
type Scaler interface {
	Transform(values []float64) ([]float64, error)
}

// Classifier predicts a cover type label and the class distribution for an
// assembled, scaled vector.
type Classifier interface {
	Predict(v Vector) (int, error)
	PredictProba(v Vector) ([]float64, error)
}

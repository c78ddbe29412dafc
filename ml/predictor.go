package ml

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Prediction is the result surfaced to the user.
type Prediction struct {
	Label             int       `json:"label"`
	CoverType         string    `json:"cover_type"`
	Confidence        float64   `json:"confidence"`
	ConfidencePercent string    `json:"confidence_percent"`
	Probabilities     []float64 `json:"probabilities"`
}

func (p Prediction) clone() Prediction {
	p.Probabilities = append([]float64(nil), p.Probabilities...)
	return p
}

// FormatConfidence renders a probability as a percentage with two decimals.
func FormatConfidence(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// Predictor holds the load-once scaler and classifier. It is safe for
// concurrent use: neither artifact is mutated after construction and the
// cache synchronizes itself.
type Predictor struct {
	scaler     Scaler
	classifier Classifier
	mode       ValidationMode
	cache      *lru.Cache[Input, Prediction]

	scalerInfo     ArtifactInfo
	classifierInfo ArtifactInfo
}

type PredictorOption func(*Predictor) error

// WithCache keeps up to size predictions keyed by input. Zero disables it.
func WithCache(size int) PredictorOption {
	return func(p *Predictor) error {
		if size < 0 {
			return fmt.Errorf("cache size must not be negative, got %d", size)
		}
		if size == 0 {
			p.cache = nil
			return nil
		}
		cache, err := lru.New[Input, Prediction](size)
		if err != nil {
			return err
		}
		p.cache = cache
		return nil
	}
}

func WithValidationMode(mode ValidationMode) PredictorOption {
	return func(p *Predictor) error {
		if mode != ModeReject && mode != ModeClamp {
			return fmt.Errorf("unknown validation mode %q", mode)
		}
		p.mode = mode
		return nil
	}
}

// WithArtifactInfo records what was loaded, for Info.
func WithArtifactInfo(scaler, classifier ArtifactInfo) PredictorOption {
	return func(p *Predictor) error {
		p.scalerInfo = scaler
		p.classifierInfo = classifier
		return nil
	}
}

func NewPredictor(scaler Scaler, classifier Classifier, opts ...PredictorOption) (*Predictor, error) {
	if scaler == nil {
		return nil, fmt.Errorf("scaler: %w", ErrNotLoaded)
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier: %w", ErrNotLoaded)
	}
	p := &Predictor{
		scaler:     scaler,
		classifier: classifier,
		mode:       ModeReject,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPredictor loads both artifacts and fails if either cannot be used.
func LoadPredictor(scalerPath, classifierPath string, opts ...PredictorOption) (*Predictor, error) {
	scaler, scalerInfo, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	classifier, classifierInfo, err := LoadClassifier(classifierPath)
	if err != nil {
		return nil, err
	}
	opts = append([]PredictorOption{WithArtifactInfo(scalerInfo, classifierInfo)}, opts...)
	return NewPredictor(scaler, classifier, opts...)
}

func (p *Predictor) Mode() ValidationMode {
	return p.mode
}

// Vector returns the scaled vector that Predict would submit for in.
func (p *Predictor) Vector(in Input) (Vector, error) {
	in, err := in.Normalize(p.mode)
	if err != nil {
		return Vector{}, err
	}
	return AssembleScaled(in, p.scaler)
}

func (p *Predictor) Predict(in Input) (Prediction, error) {
	in, err := in.Normalize(p.mode)
	if err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		if cached, ok := p.cache.Get(in); ok {
			return cached.clone(), nil
		}
	}

	vector, err := AssembleScaled(in, p.scaler)
	if err != nil {
		return Prediction{}, err
	}
	prediction, err := p.classify(vector)
	if err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		p.cache.Add(in, prediction.clone())
	}
	return prediction, nil
}

func (p *Predictor) classify(vector Vector) (Prediction, error) {
	label, err := p.classifier.Predict(vector)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	cover := CoverType(label)
	if !cover.Valid() {
		return Prediction{}, fmt.Errorf("predict: label %d is not a cover type", label)
	}
	proba, err := p.classifier.PredictProba(vector)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict proba: %w", err)
	}
	if len(proba) != CoverTypeCount {
		return Prediction{}, fmt.Errorf("predict proba: got %d probabilities, want %d", len(proba), CoverTypeCount)
	}
	confidence := 0.0
	for i, v := range proba {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("predict proba: invalid probability %v at %d", v, i)
		}
		if v > confidence {
			confidence = v
		}
	}
	if proba[label-1] != confidence {
		return Prediction{}, fmt.Errorf("predict proba: label %d has %v, not the top probability %v", label, proba[label-1], confidence)
	}
	return Prediction{
		Label:             label,
		CoverType:         cover.String(),
		Confidence:        confidence,
		ConfidencePercent: FormatConfidence(confidence),
		Probabilities:     append([]float64(nil), proba...),
	}, nil
}

// PredictorInfo summarizes the loaded artifacts.
type PredictorInfo struct {
	Scaler         ArtifactInfo `json:"scaler"`
	Classifier     ArtifactInfo `json:"classifier"`
	ValidationMode string       `json:"validation_mode"`
	CacheSize      int          `json:"cache_entries"`
}

func (p *Predictor) Info() PredictorInfo {
	info := PredictorInfo{
		Scaler:         p.scalerInfo,
		Classifier:     p.classifierInfo,
		ValidationMode: string(p.mode),
	}
	if p.cache != nil {
		info.CacheSize = p.cache.Len()
	}
	return info
}

package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler applies (x - mean) / scale per feature.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, errors.New("mean/scale length mismatch")
	}
	for i := range scale {
		if scale[i] == 0 || math.IsNaN(scale[i]) || math.IsInf(scale[i], 0) {
			return nil, fmt.Errorf("scale[%d] must be finite and non-zero", i)
		}
		if math.IsNaN(mean[i]) || math.IsInf(mean[i], 0) {
			return nil, fmt.Errorf("mean[%d] must be finite", i)
		}
	}
	return &StandardScaler{
		Mean:  append([]float64(nil), mean...),
		Scale: append([]float64(nil), scale...),
	}, nil
}

func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("standard scaler: got %d values, want %d", len(values), len(s.Mean))
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = (values[i] - s.Mean[i]) / s.Scale[i]
	}
	return result, nil
}

// MinMaxScaler maps each feature from [min, max] onto [0, 1].
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

func NewMinMaxScaler(mins, maxs []float64) (*MinMaxScaler, error) {
	if len(mins) == 0 || len(mins) != len(maxs) {
		return nil, errors.New("min/max length mismatch")
	}
	for i := range mins {
		if !(maxs[i] > mins[i]) {
			return nil, fmt.Errorf("feature %d: max %v must exceed min %v", i, maxs[i], mins[i])
		}
	}
	return &MinMaxScaler{
		Min: append([]float64(nil), mins...),
		Max: append([]float64(nil), maxs...),
	}, nil
}

func (s *MinMaxScaler) Transform(values []float64) ([]float64, error) {
	return NormalizeVector(values, s.Min, s.Max)
}

// NormalizeFeature maps value into [0, 1]; values outside [min, max] clip.
func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	n := (value - min) / (max - min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func NormalizeVector(values []float64, mins []float64, maxs []float64) ([]float64, error) {
	if len(values) != len(mins) || len(values) != len(maxs) {
		return nil, errors.New("values/mins/maxs length mismatch")
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = NormalizeFeature(values[i], mins[i], maxs[i])
	}
	return result, nil
}

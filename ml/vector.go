package ml

import (
	"errors"
	"fmt"
	"math"
)

// Vector is an assembled feature vector. It is a value type backed by a
// fixed-size array, so copies never alias and == compares bit for bit.
type Vector struct {
	values [VectorLen]float64
}

func (v Vector) Len() int {
	return VectorLen
}

func (v Vector) At(i int) float64 {
	return v.values[i]
}

// Values returns a copy of all 54 entries.
func (v Vector) Values() []float64 {
	out := make([]float64, VectorLen)
	copy(out, v.values[:])
	return out
}

func (v Vector) Continuous() []float64 {
	out := make([]float64, ContinuousCount)
	copy(out, v.values[:ContinuousCount])
	return out
}

func (v Vector) Wilderness() []float64 {
	out := make([]float64, WildernessCount)
	copy(out, v.values[wildernessOffset:soilOffset])
	return out
}

func (v Vector) Soil() []float64 {
	out := make([]float64, SoilCount)
	copy(out, v.values[soilOffset:])
	return out
}

// WithContinuous returns a new vector with indices [0,10) replaced.
func (v Vector) WithContinuous(values []float64) (Vector, error) {
	if len(values) != ContinuousCount {
		return Vector{}, fmt.Errorf("continuous segment: got %d values, want %d", len(values), ContinuousCount)
	}
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Vector{}, fmt.Errorf("continuous segment index %d: %w", i, ErrNotFinite)
		}
	}
	copy(v.values[:ContinuousCount], values)
	return v, nil
}

// VectorFromValues builds a vector from a raw 54-entry slice. It checks the
// length only.
func VectorFromValues(values []float64) (Vector, error) {
	var v Vector
	if len(values) != VectorLen {
		return v, fmt.Errorf("vector: got %d values, want %d", len(values), VectorLen)
	}
	copy(v.values[:], values)
	return v, nil
}

// OneHot returns a length-n vector with a single 1 at index k-1.
func OneHot(k, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.New("one-hot width must be positive")
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("selector %d not in [1, %d]: %w", k, n, ErrInvalidSelector)
	}
	out := make([]float64, n)
	out[k-1] = 1
	return out, nil
}

// Assemble builds the unscaled vector: continuous values, then the
// wilderness one-hot segment, then the soil one-hot segment.
func Assemble(in Input) (Vector, error) {
	var v Vector
	if err := in.Validate(); err != nil {
		return v, err
	}
	continuous := in.Continuous()
	copy(v.values[:ContinuousCount], continuous[:])

	wilderness, err := OneHot(in.WildernessArea, WildernessCount)
	if err != nil {
		return Vector{}, err
	}
	copy(v.values[wildernessOffset:soilOffset], wilderness)

	soil, err := OneHot(in.SoilType, SoilCount)
	if err != nil {
		return Vector{}, err
	}
	copy(v.values[soilOffset:], soil)
	return v, nil
}

// AssembleScaled assembles in and passes the continuous prefix through
// scaler. The one-hot segments are never scaled.
func AssembleScaled(in Input, scaler Scaler) (Vector, error) {
	if scaler == nil {
		return Vector{}, fmt.Errorf("scaler: %w", ErrNotLoaded)
	}
	raw, err := Assemble(in)
	if err != nil {
		return Vector{}, err
	}
	scaled, err := scaler.Transform(raw.Continuous())
	if err != nil {
		return Vector{}, fmt.Errorf("scale continuous features: %w", err)
	}
	return raw.WithContinuous(scaled)
}

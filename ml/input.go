package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var (
	ErrOutOfRange      = errors.New("value out of range")
	ErrNotFinite       = errors.New("value is not a finite number")
	ErrInvalidSelector = errors.New("invalid selector")
)

// FieldError reports one rejected input field.
type FieldError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrNotFinite) {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s not in [%s, %s]: %v", e.Field, formatValue(e.Value), formatValue(e.Min), formatValue(e.Max), e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Input holds the raw values gathered from the form.
type Input struct {
	Elevation                      float64 `json:"elevation"`
	Aspect                         float64 `json:"aspect"`
	Slope                          float64 `json:"slope"`
	HorizontalDistanceToHydrology  float64 `json:"horizontal_distance_to_hydrology"`
	VerticalDistanceToHydrology    float64 `json:"vertical_distance_to_hydrology"`
	HorizontalDistanceToRoadways   float64 `json:"horizontal_distance_to_roadways"`
	Hillshade9am                   float64 `json:"hillshade_9am"`
	HillshadeNoon                  float64 `json:"hillshade_noon"`
	Hillshade3pm                   float64 `json:"hillshade_3pm"`
	HorizontalDistanceToFirePoints float64 `json:"horizontal_distance_to_fire_points"`
	WildernessArea                 int     `json:"wilderness_area"`
	SoilType                       int     `json:"soil_type"`
}

// DefaultInput returns the widget defaults.
func DefaultInput() Input {
	var values [ContinuousCount]float64
	for i, f := range ContinuousFields {
		values[i] = f.Default
	}
	in := Input{WildernessArea: WildernessAreas.Default, SoilType: SoilTypes.Default}
	return in.WithContinuous(values)
}

// Continuous returns the continuous values in vector order.
func (in Input) Continuous() [ContinuousCount]float64 {
	return [ContinuousCount]float64{
		in.Elevation,
		in.Aspect,
		in.Slope,
		in.HorizontalDistanceToHydrology,
		in.VerticalDistanceToHydrology,
		in.HorizontalDistanceToRoadways,
		in.Hillshade9am,
		in.HillshadeNoon,
		in.Hillshade3pm,
		in.HorizontalDistanceToFirePoints,
	}
}

// WithContinuous returns a copy of in with the continuous values replaced.
func (in Input) WithContinuous(values [ContinuousCount]float64) Input {
	in.Elevation = values[0]
	in.Aspect = values[1]
	in.Slope = values[2]
	in.HorizontalDistanceToHydrology = values[3]
	in.VerticalDistanceToHydrology = values[4]
	in.HorizontalDistanceToRoadways = values[5]
	in.Hillshade9am = values[6]
	in.HillshadeNoon = values[7]
	in.Hillshade3pm = values[8]
	in.HorizontalDistanceToFirePoints = values[9]
	return in
}

// SetField assigns a value by its JSON field name.
func (in *Input) SetField(name string, value float64) error {
	switch name {
	case WildernessAreas.Name:
		in.WildernessArea = int(value)
		if float64(in.WildernessArea) != value {
			return &FieldError{Field: name, Value: value, Min: 1, Max: WildernessCount, Err: ErrInvalidSelector}
		}
		return nil
	case SoilTypes.Name:
		in.SoilType = int(value)
		if float64(in.SoilType) != value {
			return &FieldError{Field: name, Value: value, Min: 1, Max: SoilCount, Err: ErrInvalidSelector}
		}
		return nil
	}
	for _, f := range ContinuousFields {
		if f.Name == name {
			values := in.Continuous()
			values[f.Index] = value
			*in = in.WithContinuous(values)
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", name)
}

// Validate rejects any continuous value outside its range and any selector
// outside [1,N]. Every offending field is reported.
func (in Input) Validate() error {
	var err error
	for i, v := range in.Continuous() {
		f := ContinuousFields[i]
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			err = multierr.Append(err, &FieldError{Field: f.Name, Value: v, Min: f.Min, Max: f.Max, Err: ErrNotFinite})
		case !f.Contains(v):
			err = multierr.Append(err, &FieldError{Field: f.Name, Value: v, Min: f.Min, Max: f.Max, Err: ErrOutOfRange})
		}
	}
	for _, sel := range []struct {
		selector Selector
		value    int
	}{
		{WildernessAreas, in.WildernessArea},
		{SoilTypes, in.SoilType},
	} {
		if !sel.selector.Valid(sel.value) {
			err = multierr.Append(err, &FieldError{
				Field: sel.selector.Name,
				Value: float64(sel.value),
				Min:   1,
				Max:   float64(sel.selector.Count),
				Err:   ErrInvalidSelector,
			})
		}
	}
	return err
}

// ValidationMode selects what happens to continuous values outside their range.
type ValidationMode string

const (
	ModeReject ValidationMode = "reject"
	ModeClamp  ValidationMode = "clamp"
)

func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReject:
		return ModeReject, nil
	case ModeClamp:
		return ModeClamp, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// Normalize applies mode to in and validates the result. Clamp mode only
// touches finite continuous values; selectors are never clamped.
func (in Input) Normalize(mode ValidationMode) (Input, error) {
	if mode == ModeClamp {
		values := in.Continuous()
		for i, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i] = ContinuousFields[i].Clamp(v)
			}
		}
		in = in.WithContinuous(values)
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// FieldErrors flattens a validation error into its field errors.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}

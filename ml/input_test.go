package ml

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultInputMatchesFields(t *testing.T) {
	in := DefaultInput()
	values := in.Continuous()
	for i, f := range ContinuousFields {
		if f.Index != i {
			t.Fatalf("field %s has index %d, want %d", f.Name, f.Index, i)
		}
		if values[i] != f.Default {
			t.Fatalf("%s: default %v, want %v", f.Name, values[i], f.Default)
		}
	}
	if in.WildernessArea != 1 || in.SoilType != 10 {
		t.Fatalf("unexpected selector defaults: %+v", in)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	err := Input{}.Validate()
	fields := FieldErrors(err)
	if len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(fields), err)
	}
	want := []string{"elevation", "wilderness_area", "soil_type"}
	for i, fe := range fields {
		if fe.Field != want[i] {
			t.Fatalf("field error %d is %s, want %s", i, fe.Field, want[i])
		}
	}
	if !errors.Is(fields[0], ErrOutOfRange) || !errors.Is(fields[1], ErrInvalidSelector) {
		t.Fatalf("unexpected error kinds: %v", err)
	}
}

func TestValidateRangeEdges(t *testing.T) {
	for _, f := range ContinuousFields {
		for _, v := range []float64{f.Min, f.Max} {
			in := DefaultInput()
			if err := in.SetField(f.Name, v); err != nil {
				t.Fatalf("SetField(%s): %v", f.Name, err)
			}
			if err := in.Validate(); err != nil {
				t.Fatalf("%s=%v should be valid: %v", f.Name, v, err)
			}
		}
		for _, v := range []float64{f.Min - 1, f.Max + 1} {
			in := DefaultInput()
			_ = in.SetField(f.Name, v)
			if err := in.Validate(); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("%s=%v: expected ErrOutOfRange, got %v", f.Name, v, err)
			}
		}
	}
}

func TestNormalizeModes(t *testing.T) {
	in := DefaultInput()
	in.Elevation = 5000
	in.Slope = -3

	if _, err := in.Normalize(ModeReject); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("reject mode: expected ErrOutOfRange, got %v", err)
	}

	clamped, err := in.Normalize(ModeClamp)
	if err != nil {
		t.Fatalf("clamp mode: unexpected error: %v", err)
	}
	if clamped.Elevation != 4000 || clamped.Slope != 0 {
		t.Fatalf("unexpected clamped values: %+v", clamped)
	}

	in = DefaultInput()
	in.Aspect = math.NaN()
	if _, err := in.Normalize(ModeClamp); !errors.Is(err, ErrNotFinite) {
		t.Fatalf("expected ErrNotFinite, got %v", err)
	}
	in = DefaultInput()
	in.HillshadeNoon = math.Inf(1)
	if _, err := in.Normalize(ModeClamp); !errors.Is(err, ErrNotFinite) {
		t.Fatalf("expected ErrNotFinite for +Inf, got %v", err)
	}

	in = DefaultInput()
	in.SoilType = 41
	if _, err := in.Normalize(ModeClamp); !errors.Is(err, ErrInvalidSelector) {
		t.Fatalf("selectors must never be clamped, got %v", err)
	}
}

func TestParseValidationMode(t *testing.T) {
	for s, want := range map[string]ValidationMode{"": ModeReject, "reject": ModeReject, " Clamp ": ModeClamp} {
		got, err := ParseValidationMode(s)
		if err != nil || got != want {
			t.Fatalf("ParseValidationMode(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseValidationMode("wrap"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestFieldErrorMessage(t *testing.T) {
	in := DefaultInput()
	in.Elevation = 5000
	fields := FieldErrors(in.Validate())
	if len(fields) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fields))
	}
	want := "elevation: 5000 not in [1800, 4000]: value out of range"
	if fields[0].Error() != want {
		t.Fatalf("unexpected message %q", fields[0].Error())
	}
}

func TestSetField(t *testing.T) {
	var in Input
	if err := in.SetField("hillshade_3pm", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Hillshade3pm != 99 {
		t.Fatalf("hillshade_3pm not set: %+v", in)
	}
	if err := in.SetField("soil_type", 12); err != nil || in.SoilType != 12 {
		t.Fatalf("soil_type not set: %+v, %v", in, err)
	}
	if err := in.SetField("wilderness_area", 2.5); !errors.Is(err, ErrInvalidSelector) {
		t.Fatalf("expected ErrInvalidSelector for fractional selector, got %v", err)
	}
	if err := in.SetField("canopy", 1); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestFeatureNamesOrder(t *testing.T) {
	names := FeatureNames()
	if len(names) != VectorLen {
		t.Fatalf("expected %d names, got %d", VectorLen, len(names))
	}
	if names[0] != "elevation" || names[9] != "horizontal_distance_to_fire_points" {
		t.Fatalf("unexpected continuous names: %v", names[:10])
	}
	if names[10] != "wilderness_area_1" || names[13] != "wilderness_area_4" {
		t.Fatalf("unexpected wilderness names: %v", names[10:14])
	}
	if names[14] != "soil_type_1" || names[53] != "soil_type_40" {
		t.Fatalf("unexpected soil names: %v %v", names[14], names[53])
	}
}

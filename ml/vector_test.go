package ml

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type offsetScaler struct {
	offset float64
	seen   []float64
}

func (s *offsetScaler) Transform(values []float64) ([]float64, error) {
	s.seen = append([]float64(nil), values...)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + s.offset
	}
	return out, nil
}

type brokenScaler struct {
	out []float64
	err error
}

func (s brokenScaler) Transform([]float64) ([]float64, error) {
	return s.out, s.err
}

func TestOneHotPlacement(t *testing.T) {
	for _, n := range []int{WildernessCount, SoilCount} {
		for k := 1; k <= n; k++ {
			got, err := OneHot(k, n)
			if err != nil {
				t.Fatalf("OneHot(%d, %d): unexpected error: %v", k, n, err)
			}
			if len(got) != n {
				t.Fatalf("OneHot(%d, %d): length %d", k, n, len(got))
			}
			for i, v := range got {
				want := 0.0
				if i == k-1 {
					want = 1
				}
				if v != want {
					t.Fatalf("OneHot(%d, %d)[%d] = %v, want %v", k, n, i, v, want)
				}
			}
		}
	}
}

func TestOneHotRejectsOutOfRange(t *testing.T) {
	for _, tc := range []struct{ k, n int }{{0, 4}, {5, 4}, {-1, 40}, {41, 40}} {
		if _, err := OneHot(tc.k, tc.n); !errors.Is(err, ErrInvalidSelector) {
			t.Fatalf("OneHot(%d, %d): expected ErrInvalidSelector, got %v", tc.k, tc.n, err)
		}
	}
	if _, err := OneHot(1, 0); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestAssembleDefaultScenario(t *testing.T) {
	v, err := Assemble(DefaultInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{2700, 180, 20, 50, 0, 2000, 200, 220, 150, 1500, 1, 0, 0, 0}
	soil := make([]float64, SoilCount)
	soil[9] = 1
	want = append(want, soil...)

	if diff := cmp.Diff(want, v.Values()); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleSoilLastPosition(t *testing.T) {
	in := DefaultInput()
	in.SoilType = 40
	v, err := Assemble(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := make([]float64, SoilCount)
	want[39] = 1
	if diff := cmp.Diff(want, v.Soil()); diff != "" {
		t.Fatalf("soil segment mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleWildernessArea4(t *testing.T) {
	in := DefaultInput()
	in.WildernessArea = 4
	v, err := Assemble(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0, 0, 1}, v.Wilderness()); diff != "" {
		t.Fatalf("wilderness segment mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleOneHotSegmentsForAllSelectors(t *testing.T) {
	for w := 1; w <= WildernessCount; w++ {
		for s := 1; s <= SoilCount; s++ {
			in := DefaultInput()
			in.WildernessArea = w
			in.SoilType = s
			v, err := Assemble(in)
			if err != nil {
				t.Fatalf("wilderness=%d soil=%d: unexpected error: %v", w, s, err)
			}
			if v.Len() != VectorLen || len(v.Values()) != VectorLen {
				t.Fatalf("unexpected vector length %d", len(v.Values()))
			}
			var wildSum, soilSum float64
			for i := ContinuousCount; i < VectorLen; i++ {
				x := v.At(i)
				if x != 0 && x != 1 {
					t.Fatalf("index %d holds %v, want 0 or 1", i, x)
				}
				if i < ContinuousCount+WildernessCount {
					wildSum += x
				} else {
					soilSum += x
				}
			}
			if wildSum != 1 || soilSum != 1 {
				t.Fatalf("wilderness=%d soil=%d: segment sums %v/%v", w, s, wildSum, soilSum)
			}
			if v.At(ContinuousCount+w-1) != 1 || v.At(ContinuousCount+WildernessCount+s-1) != 1 {
				t.Fatalf("wilderness=%d soil=%d: one-hot placed at wrong index", w, s)
			}
		}
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	in := DefaultInput()
	in.VerticalDistanceToHydrology = -123.5
	a, err := Assemble(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Assemble(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatal("expected bit-identical vectors")
	}

	scaler := &offsetScaler{offset: 0.25}
	sa, _ := AssembleScaled(in, scaler)
	sb, _ := AssembleScaled(in, scaler)
	if sa != sb {
		t.Fatal("expected bit-identical scaled vectors")
	}
}

func TestAssembleScaledChangesOnlyContinuous(t *testing.T) {
	in := DefaultInput()
	raw, err := Assemble(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scaler := &offsetScaler{offset: -1000}
	scaled, err := AssembleScaled(in, scaler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(raw.Continuous(), scaler.seen); diff != "" {
		t.Fatalf("scaler input mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < VectorLen; i++ {
		if i < ContinuousCount {
			if scaled.At(i) != raw.At(i)-1000 {
				t.Fatalf("index %d not scaled: %v", i, scaled.At(i))
			}
			continue
		}
		if scaled.At(i) != raw.At(i) {
			t.Fatalf("index %d changed by scaling: %v -> %v", i, raw.At(i), scaled.At(i))
		}
	}
}

func TestAssembleScaledRejectsBadScalerOutput(t *testing.T) {
	cases := map[string]Scaler{
		"short":  brokenScaler{out: make([]float64, ContinuousCount-1)},
		"nan":    brokenScaler{out: []float64{math.NaN(), 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		"failed": brokenScaler{err: errors.New("boom")},
	}
	for name, scaler := range cases {
		if _, err := AssembleScaled(DefaultInput(), scaler); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := AssembleScaled(DefaultInput(), nil); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestAssembleRejectsInvalidSelectors(t *testing.T) {
	cases := []struct {
		name       string
		wilderness int
		soil       int
	}{
		{"wilderness zero", 0, 10},
		{"wilderness above range", 5, 10},
		{"soil zero", 1, 0},
		{"soil above range", 1, 41},
	}
	for _, tc := range cases {
		in := DefaultInput()
		in.WildernessArea = tc.wilderness
		in.SoilType = tc.soil
		if _, err := Assemble(in); !errors.Is(err, ErrInvalidSelector) {
			t.Fatalf("%s: expected ErrInvalidSelector, got %v", tc.name, err)
		}
	}
}

func TestAssembleSelectorBoundaries(t *testing.T) {
	for _, tc := range []struct{ wilderness, soil int }{{1, 1}, {4, 40}, {1, 40}, {4, 1}} {
		in := DefaultInput()
		in.WildernessArea = tc.wilderness
		in.SoilType = tc.soil
		v, err := Assemble(in)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tc, err)
		}
		if v.Wilderness()[tc.wilderness-1] != 1 || v.Soil()[tc.soil-1] != 1 {
			t.Fatalf("%+v: wrong one-hot placement", tc)
		}
	}
}

func TestVectorCopiesDoNotAlias(t *testing.T) {
	v, err := Assemble(DefaultInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := v.Values()
	values[0] = -1
	if v.At(0) != 2700 {
		t.Fatalf("vector mutated through Values: %v", v.At(0))
	}
	if _, err := VectorFromValues(make([]float64, 53)); err == nil {
		t.Fatal("expected length error")
	}
}

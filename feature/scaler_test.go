package feature

import (
	"math"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestScaler_RoundTrip(t *testing.T) {
	standard, err := NewStandardScaler(
		[]float64{650.5, 0.55, 38.9, 5.0, 76485.9},
		[]float64{96.6, 0.49, 10.5, 2.9, 62394.3},
		nil,
	)
	if err != nil {
		t.Fatalf("NewStandardScaler() error = %v", err)
	}
	minmax, err := NewMinMaxScaler(
		[]float64{350, 0, 18, 0, 0},
		[]float64{850, 1, 92, 10, 250898},
		nil,
	)
	if err != nil {
		t.Fatalf("NewMinMaxScaler() error = %v", err)
	}

	inputs := [][]float64{
		{600, 1, 35, 3, 1000},
		{850, 0, 92, 10, 250898.09},
		{300, 1, 18, 0, 0},
		{-1e6, 1, 1e6, 42, 1e9},
	}
	for _, s := range []Scaler{standard, minmax} {
		for _, x := range inputs {
			scaled, err := s.Transform(x)
			if err != nil {
				t.Fatalf("%s.Transform() error = %v", s.Name(), err)
			}
			if len(scaled) != len(x) {
				t.Fatalf("%s.Transform() len = %d, want %d", s.Name(), len(scaled), len(x))
			}
			back, err := s.Inverse(scaled)
			if err != nil {
				t.Fatalf("%s.Inverse() error = %v", s.Name(), err)
			}
			for i := range x {
				if diff := math.Abs(back[i] - x[i]); diff > 1e-9*math.Max(1, math.Abs(x[i])) {
					t.Errorf("%s round trip [%d] = %v, want %v", s.Name(), i, back[i], x[i])
				}
			}
		}
	}
}

func TestStandardScaler_Transform(t *testing.T) {
	s, err := NewStandardScaler([]float64{10, 5}, []float64{2, 0}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("NewStandardScaler() error = %v", err)
	}
	got, err := s.Transform([]float64{14, 7})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	// 第二列 scale 为 0，按 1 处理
	if got[0] != 2 || got[1] != 2 {
		t.Errorf("Transform() = %v, want [2 2]", got)
	}
}

func TestScaler_DimensionMismatch(t *testing.T) {
	mean := make([]float64, 12)
	scale := make([]float64, 12)
	for i := range scale {
		scale[i] = 1
	}
	s, err := NewStandardScaler(mean, scale, nil)
	if err != nil {
		t.Fatalf("NewStandardScaler() error = %v", err)
	}

	for _, n := range []int{11, 13, 0} {
		got, err := s.Transform(make([]float64, n))
		if !core.IsSchemaMismatch(err) {
			t.Errorf("Transform(len=%d) error = %v, want SCHEMA_MISMATCH", n, err)
		}
		if got != nil {
			t.Errorf("Transform(len=%d) returned %v, want nil", n, got)
		}
		if _, err := s.Inverse(make([]float64, n)); !core.IsSchemaMismatch(err) {
			t.Errorf("Inverse(len=%d) error = %v, want SCHEMA_MISMATCH", n, err)
		}
	}
}

func TestNewScaler_Invalid(t *testing.T) {
	if _, err := NewStandardScaler([]float64{1, 2}, []float64{1}, nil); err == nil {
		t.Error("NewStandardScaler(mismatched) error = nil")
	}
	if _, err := NewStandardScaler(nil, nil, nil); err == nil {
		t.Error("NewStandardScaler(empty) error = nil")
	}
	if _, err := NewMinMaxScaler([]float64{1}, []float64{0}, nil); err == nil {
		t.Error("NewMinMaxScaler(max < min) error = nil")
	}
	if _, err := NewMinMaxScaler([]float64{0, 0}, []float64{1, 1}, []string{"a"}); err == nil {
		t.Error("NewMinMaxScaler(names mismatch) error = nil")
	}
}

package conv

import (
	"encoding/json"
	"testing"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float64", 1000.5, 1000.5, true},
		{"int", 600, 600, true},
		{"int64", int64(35), 35, true},
		{"json number", json.Number("50000.0"), 50000, true},
		{"numeric string", " 3 ", 3, true},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"text", "France", 0, false},
		{"nil", nil, 0, false},
		{"slice", []int{1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ToFloat64(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToString(t *testing.T) {
	if got, ok := ToString("Male"); !ok || got != "Male" {
		t.Errorf("ToString(Male) = (%q, %v)", got, ok)
	}
	if got, ok := ToString(1); !ok || got != "1" {
		t.Errorf("ToString(1) = (%q, %v)", got, ok)
	}
	if _, ok := ToString(map[string]int{}); ok {
		t.Error("ToString(map) should fail")
	}
}

func TestConfigGetFloat64(t *testing.T) {
	m := map[string]any{"scale": 200000, "threshold": 0.5, "bad": "x"}
	if got := ConfigGetFloat64(m, "scale", 1); got != 200000 {
		t.Errorf("scale = %v", got)
	}
	if got := ConfigGetFloat64(m, "threshold", 0); got != 0.5 {
		t.Errorf("threshold = %v", got)
	}
	if got := ConfigGetFloat64(m, "bad", 7); got != 7 {
		t.Errorf("bad = %v, want default", got)
	}
	if got := ConfigGetFloat64(nil, "x", 9); got != 9 {
		t.Errorf("nil map = %v, want default", got)
	}
}

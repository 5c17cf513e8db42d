package feature

import "testing"

func TestParseFeatureMetadata(t *testing.T) {
	meta, err := ParseFeatureMetadata([]byte(`{
		"feature_columns": ["CreditScore", "Gender"],
		"feature_count": 2,
		"model_version": "v1",
		"task": "classification"
	}`))
	if err != nil {
		t.Fatalf("ParseFeatureMetadata() error = %v", err)
	}
	schema, err := meta.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if !schema.Equal([]string{"CreditScore", "Gender"}) {
		t.Errorf("Schema() = %v", schema.Columns())
	}

	if _, err := ParseFeatureMetadata([]byte(`{"feature_columns": ["a"], "feature_count": 3}`)); err == nil {
		t.Error("ParseFeatureMetadata(count mismatch) error = nil")
	}
	if _, err := ParseFeatureMetadata([]byte(`{`)); err == nil {
		t.Error("ParseFeatureMetadata(corrupt) error = nil")
	}
}

func TestParseScaler(t *testing.T) {
	s, err := ParseScaler([]byte(`{"type": "minmax", "min": [0, 10], "max": [10, 20]}`))
	if err != nil {
		t.Fatalf("ParseScaler() error = %v", err)
	}
	got, err := s.Transform([]float64{5, 15})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("Transform() = %v, want [0.5 0.5]", got)
	}

	if s, err := ParseScaler([]byte(`{"mean": [1], "scale": [2]}`)); err != nil || s.Name() != "standard" {
		t.Errorf("ParseScaler(default type) = %v, %v", s, err)
	}
	if _, err := ParseScaler([]byte(`{"type": "robust"}`)); err == nil {
		t.Error("ParseScaler(unsupported) error = nil")
	}
}

func TestParseEncoder(t *testing.T) {
	enc, err := ParseEncoder([]byte(`{
		"onehot": [{"field": "Geography", "categories": ["France", "Germany", "Spain"]}],
		"label": [{"field": "Gender", "classes": ["Female", "Male"]}]
	}`))
	if err != nil {
		t.Fatalf("ParseEncoder() error = %v", err)
	}
	if got := enc.Fields(); len(got) != 2 || got[0] != "Geography" || got[1] != "Gender" {
		t.Errorf("Fields() = %v", got)
	}
}

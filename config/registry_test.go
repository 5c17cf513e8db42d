package config

import (
	"context"
	"strings"
	"testing"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/model"
)

func TestRegistry(t *testing.T) {
	Register("test.const", func(params map[string]any, data []byte, columns []string) (model.Model, error) {
		kernel := make([][]float64, len(columns))
		for i := range kernel {
			kernel[i] = []float64{0}
		}
		return model.NewDenseModel("const", []model.DenseLayer{{Units: 1, Kernel: kernel, Bias: []float64{0.25}}})
	}, WithDefaultFile(artifact.NoModelFile))
	Register("", nil)

	found := false
	for _, typ := range SupportedTypes() {
		if typ == "test.const" {
			found = true
		}
		if typ == "" {
			t.Error("empty type registered")
		}
	}
	if !found {
		t.Fatalf("SupportedTypes() = %v, want test.const", SupportedTypes())
	}

	if f, err := DefaultModelFile("test.const"); err != nil || f != artifact.NoModelFile {
		t.Errorf("DefaultModelFile() = %q, %v", f, err)
	}

	err := ValidateModelType("xgboost")
	if err == nil || !strings.Contains(err.Error(), "test.const") {
		t.Errorf("ValidateModelType(xgboost) error = %v, want supported list", err)
	}
	if _, err := ArtifactBuilder("xgboost", nil); err == nil {
		t.Error("ArtifactBuilder(xgboost) error = nil")
	}

	build, err := ArtifactBuilder("test.const", nil)
	if err != nil {
		t.Fatalf("ArtifactBuilder() error = %v", err)
	}
	m, err := build(context.Background(), nil, []string{"a", "b"})
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	got, err := m.Predict(context.Background(), []float64{3, 4})
	if err != nil || got != 0.25 || m.InputDim() != 2 {
		t.Errorf("Predict() = %v, %v (dim %d)", got, err, m.InputDim())
	}
}

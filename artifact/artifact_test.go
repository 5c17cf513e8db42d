package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/store"
)

const churnDir = "../testdata/artifacts/churn"

func denseBuilder(ctx context.Context, data []byte, columns []string) (model.Model, error) {
	return model.ParseDenseModel(data)
}

func TestLoad_Dir(t *testing.T) {
	b, err := Load(context.Background(), NewDirSource(churnDir), Files{}, denseBuilder,
		WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer b.Close()

	if b.Schema().Len() != 12 || b.Scaler().Dim() != 12 || b.Model().InputDim() != 12 {
		t.Errorf("dims = %d/%d/%d, want 12", b.Schema().Len(), b.Scaler().Dim(), b.Model().InputDim())
	}
	if b.Task() != core.TaskClassification || b.Version() != "churn-ann-2024.06" {
		t.Errorf("task/version = %s/%s", b.Task(), b.Version())
	}
	if got := b.Assembler().NumericFields(); len(got) != 8 {
		t.Errorf("NumericFields() = %v, want 8 fields", got)
	}
}

func TestLoad_LRModel(t *testing.T) {
	build := func(ctx context.Context, data []byte, columns []string) (model.Model, error) {
		m, err := model.ParseLRModel(data)
		if err != nil {
			return nil, err
		}
		return m.Bind(columns)
	}
	b, err := Load(context.Background(), NewDirSource(churnDir), Files{Model: "model_lr.json"}, build)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if b.Model().Name() != "lr" {
		t.Errorf("model = %s, want lr", b.Model().Name())
	}
}

func TestLoad_Failures(t *testing.T) {
	ctx := context.Background()

	copyDir := func(t *testing.T, override map[string]string) string {
		t.Helper()
		dir := t.TempDir()
		for _, name := range []string{"feature_meta.json", "encoders.json", "scaler.json", "model.json"} {
			data, err := os.ReadFile(filepath.Join(churnDir, name))
			if err != nil {
				t.Fatal(err)
			}
			if v, ok := override[name]; ok {
				data = []byte(v)
			}
			if v, ok := override[name]; ok && v == "" {
				continue
			}
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return dir
	}

	tests := []struct {
		name     string
		override map[string]string
		wantMsg  string
	}{
		{"missing model", map[string]string{"model.json": ""}, "model.json"},
		{"corrupt encoder", map[string]string{"encoders.json": "{"}, "encoders.json"},
		{"corrupt metadata", map[string]string{"feature_meta.json": `{"feature_columns": ["A"], "feature_count": 2}`}, "feature_meta.json"},
		{"unknown scaler", map[string]string{"scaler.json": `{"type": "robust", "mean": [0]}`}, "scaler.json"},
		{"scaler dim", map[string]string{"scaler.json": `{"mean": [0,0,0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,1,1]}`}, "scaler expects 11 features"},
		{"model dim", map[string]string{"model.json": `{"layers": [{"units": 1, "kernel": [[1],[1]], "bias": [0]}]}`}, "expects 2 features"},
		{"encoder not in schema", map[string]string{"encoders.json": `{"onehot": [{"field": "Geography", "categories": ["France", "Italy", "Spain"]}], "label": [{"field": "Gender", "classes": ["Female", "Male"]}]}`}, "Geography_Italy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, NewDirSource(copyDir(t, tt.override)), Files{}, denseBuilder)
			if !core.IsArtifactLoadFailure(err) {
				t.Fatalf("Load() error = %v, want ARTIFACT_LOAD_FAILURE", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	if _, err := Load(ctx, nil, Files{}, denseBuilder); !core.IsArtifactLoadFailure(err) {
		t.Errorf("Load(nil source) error = %v", err)
	}
	boom := errors.New("registry offline")
	failing := func(context.Context, []byte, []string) (model.Model, error) { return nil, boom }
	if _, err := Load(ctx, NewDirSource(churnDir), Files{}, failing); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want wrapped %v", err, boom)
	}
}

func TestLoad_NoModelFile(t *testing.T) {
	var gotData []byte
	build := func(ctx context.Context, data []byte, columns []string) (model.Model, error) {
		gotData = data
		return model.ParseDenseModel(mustRead(t, filepath.Join(churnDir, "model.json")))
	}
	if _, err := Load(context.Background(), NewDirSource(churnDir), Files{Model: NoModelFile}, build); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotData != nil {
		t.Errorf("builder received %d bytes, want nil", len(gotData))
	}
}

func TestLoad_SyntheticColumnNames(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	dst := NewStoreSource(mem, "models/churn/")
	if err := Publish(ctx, NewDirSource(churnDir), dst, Files{}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	// feature_names 数量错误时回退为合成列名，按位置对齐到 Geography_* 列
	_ = mem.Set(ctx, "models/churn/encoders.json", []byte(`{
		"onehot": [{"field": "Geography", "categories": ["France", "Germany", "Spain"], "feature_names": ["x0_France"]}],
		"label": [{"field": "Gender", "classes": ["Female", "Male"]}]
	}`))

	b, err := Load(ctx, dst, Files{}, denseBuilder, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if synthetic, _ := b.Encoder().Synthetic("Geography"); !synthetic {
		t.Error("Synthetic(Geography) = false, want true")
	}
	a, err := b.Assembler().Assemble(core.RawRecord{
		"CreditScore": 600, "Geography": "Germany", "Gender": "Male", "Age": 35, "Tenure": 3,
		"Balance": 1000.0, "NumOfProducts": 1, "HasCrCard": 1, "IsActiveMember": 1, "EstimatedSalary": 50000.0,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if got := a.Vector[9:]; got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Errorf("Geography columns = %v, want [0 1 0]", got)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/models/churn", http.FileServer(http.Dir(churnDir))))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/models/churn/", 0)
	b, err := Load(context.Background(), src, Files{}, denseBuilder)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if b.Schema().Len() != 12 {
		t.Errorf("Schema.Len() = %d", b.Schema().Len())
	}
	if _, err := src.Fetch(context.Background(), "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDirSource_Escape(t *testing.T) {
	src := NewDirSource(churnDir)
	for _, name := range []string{"../salary/model.json", "/etc/passwd"} {
		if _, err := src.Fetch(context.Background(), name); err == nil {
			t.Errorf("Fetch(%q) error = nil", name)
		}
	}
	if _, err := src.Fetch(context.Background(), "nope.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(nope) error = %v, want ErrNotFound", err)
	}
}

func TestFiles_Names(t *testing.T) {
	got := Files{Model: NoModelFile}.Names()
	want := []string{DefaultMetadataFile, DefaultEncodersFile, DefaultScalerFile}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if n := len(Files{}.Names()); n != 4 {
		t.Errorf("len(Names()) = %d, want 4", n)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

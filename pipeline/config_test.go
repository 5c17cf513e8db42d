package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	_ "github.com/rushteam/churnkit/config/builders"
	"github.com/rushteam/churnkit/core"
)

const testConfigYAML = `
log:
  level: debug
server:
  addr: ":9090"
pipelines:
  churn:
    artifacts:
      location: ${CHURNKIT_ARTIFACTS}/churn
    cache_size: 16
    validation:
      - name: credit_score
        expr: "record.CreditScore >= 300.0 && record.CreditScore <= 850.0"
  salary:
    artifacts:
      location: ${CHURNKIT_ARTIFACTS}/salary
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setArtifactsEnv(t *testing.T) {
	t.Helper()
	dir, err := filepath.Abs("../testdata/artifacts")
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHURNKIT_ARTIFACTS", dir)
}

func TestLoadConfig_YAML(t *testing.T) {
	setArtifactsEnv(t)
	cfg, err := LoadConfig(writeConfig(t, "churnkit.yaml", testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Log.Level != "debug" {
		t.Errorf("server/log = %+v / %+v", cfg.Server, cfg.Log)
	}
	churn := cfg.Pipelines[NameChurn]
	if churn.Task != core.TaskClassification || churn.Threshold != 0.5 || churn.Model.Type != "dense" {
		t.Errorf("churn defaults = %+v", churn)
	}
	if churn.Artifacts.Source != SourceDir || !strings.HasSuffix(churn.Artifacts.Location, "/churn") {
		t.Errorf("churn artifacts = %+v", churn.Artifacts)
	}
	salary := cfg.Pipelines[NameSalary]
	if salary.Task != core.TaskRegression || salary.SalaryScale != 200000 {
		t.Errorf("salary defaults = %+v", salary)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "churnkit.json", `{
  "pipelines": {
    "churn": {"threshold": 0.7, "artifacts": {"location": "/srv/churn"}, "model": {"type": "lr"}}
  }
}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %s", cfg.Server.Addr)
	}
	if pc := cfg.Pipelines[NameChurn]; pc.Threshold != 0.7 || pc.Model.Type != "lr" {
		t.Errorf("churn = %+v", pc)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no pipelines", "server:\n  addr: :1\n", "no pipelines"},
		{"unknown task", "pipelines:\n  x:\n    task: ranking\n    artifacts: {location: /a}\n", "unknown task"},
		{"threshold", "pipelines:\n  churn:\n    threshold: 1.5\n    artifacts: {location: /a}\n", "threshold"},
		{"scale", "pipelines:\n  salary:\n    salary_scale: -1\n    artifacts: {location: /a}\n", "salary_scale"},
		{"source", "pipelines:\n  churn:\n    artifacts: {source: ftp, location: /a}\n", "unknown artifact source"},
		{"location", "pipelines:\n  churn:\n    artifacts: {source: http}\n", "location"},
		{"redis missing", "pipelines:\n  churn:\n    artifacts: {source: redis, location: churn}\n", "redis.addr"},
		{"model type", "pipelines:\n  churn:\n    model: {type: xgboost}\n    artifacts: {location: /a}\n", "xgboost"},
		{"rule", "pipelines:\n  churn:\n    artifacts: {location: /a}\n    validation:\n      - expr: \"record.Age >\"\n", "rule"},
		{"feast", "pipelines:\n  churn:\n    artifacts: {location: /a}\nfeast:\n  endpoint: localhost:6566\n", "feast"},
		{"yaml", "pipelines: [", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "c.yaml", tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want read error")
	}
}

func TestBuild(t *testing.T) {
	setArtifactsEnv(t)
	cfg, err := LoadConfig(writeConfig(t, "churnkit.yaml", testConfigYAML))
	if err != nil {
		t.Fatal(err)
	}

	pred, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer pred.Close()

	if got := pred.Names(); len(got) != 2 || got[0] != NameChurn || got[1] != NameSalary {
		t.Errorf("Names() = %v", got)
	}

	churn, err := pred.PredictChurn(context.Background(), churnRecord())
	if err != nil {
		t.Fatalf("PredictChurn() error = %v", err)
	}
	if !almostEqual(churn.RawScore, 0.04443269391277765, 1e-9) {
		t.Errorf("churn raw = %v", churn.RawScore)
	}

	salary, err := pred.PredictSalary(context.Background(), salaryRecord())
	if err != nil {
		t.Fatalf("PredictSalary() error = %v", err)
	}
	if !almostEqual(salary.Salary.Estimate, 81054.89409698732, 1e-4) {
		t.Errorf("salary = %v", salary.Salary.Estimate)
	}

	record := churnRecord()
	record["CreditScore"] = 900
	if _, err := pred.PredictChurn(context.Background(), record); !core.IsInvalidInput(err) {
		t.Errorf("rule violation error = %v, want INVALID_INPUT", err)
	}
}

func TestBuild_LRModel(t *testing.T) {
	setArtifactsEnv(t)
	cfg, err := LoadConfig(writeConfig(t, "lr.yaml", `
pipelines:
  churn:
    model: {type: lr}
    artifacts:
      location: ${CHURNKIT_ARTIFACTS}/churn
      files: {model: model_lr.json}
`))
	if err != nil {
		t.Fatal(err)
	}
	pred, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer pred.Close()

	got, err := pred.PredictChurn(context.Background(), churnRecord())
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got.RawScore, 0.28326660569905754, 1e-9) {
		t.Errorf("raw = %v, want 0.28326660569905754", got.RawScore)
	}
}

func TestBuild_MissingArtifacts(t *testing.T) {
	cfg := &Config{Pipelines: map[string]*PipelineConfig{
		NameChurn: {Artifacts: ArtifactsConfig{Location: t.TempDir()}},
	}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if _, err := Build(context.Background(), cfg, nil); !core.IsArtifactLoadFailure(err) {
		t.Errorf("Build() error = %v, want ARTIFACT_LOAD_FAILURE", err)
	}
}

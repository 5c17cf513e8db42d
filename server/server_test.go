package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/interpret"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePredictor struct {
	err  error
	down map[string]error
}

func (f *fakePredictor) Names() []string       { return []string{"churn"} }
func (f *fakePredictor) HasRecordSource() bool { return false }

func (f *fakePredictor) Health(ctx context.Context) map[string]error { return f.down }

func (f *fakePredictor) Predict(ctx context.Context, name string, record core.RawRecord) (*core.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Prediction{
		Task:     core.TaskClassification,
		Churn:    &core.ChurnResult{Label: core.LabelChurn, Churn: true, Probability: 0.8},
		RawScore: 0.8,
	}, nil
}

func (f *fakePredictor) Stats(name string) ([]feature.FieldStats, error) {
	return nil, f.err
}

func (f *fakePredictor) PredictEntity(ctx context.Context, name, id string) (*core.Prediction, error) {
	return f.Predict(ctx, name, nil)
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := New(&fakePredictor{}, pipeline.ServerConfig{}, zaptest.NewLogger(t))
	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"pipelines":["churn"]`) {
		t.Errorf("body = %s", w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHealth_Unavailable(t *testing.T) {
	down := map[string]error{
		"churn": core.NewDomainError(core.ModulePipeline, core.ErrorCodeUnavailable, "pipeline churn model is unavailable"),
	}
	s := New(&fakePredictor{down: down}, pipeline.ServerConfig{}, zaptest.NewLogger(t))
	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body struct {
		Status      string            `json:"status"`
		Unavailable map[string]string `json:"unavailable"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "unavailable" || !strings.Contains(body.Unavailable["churn"], "unavailable") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPredict_RequestID(t *testing.T) {
	s := New(&fakePredictor{}, pipeline.ServerConfig{}, zaptest.NewLogger(t))
	w := do(t, s, http.MethodPost, "/v1/predict/churn", `{"Age": 40}`,
		map[string]string{requestIDHeader: "req-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != "req-1" || w.Header().Get(requestIDHeader) != "req-1" {
		t.Errorf("request id = %s / %s", resp.RequestID, w.Header().Get(requestIDHeader))
	}
	if resp.Summary != "This customer is likely to churn (Probability: 80.00%)" {
		t.Errorf("summary = %q", resp.Summary)
	}
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed body", nil, `{"Age":`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"empty body", nil, `{}`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"invalid input", core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "missing required fields: Age"),
			`{"x":1}`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"not found", core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotFound, "pipeline tenure is not configured"),
			`{"x":1}`, http.StatusNotFound, core.ErrorCodeNotFound},
		{"schema mismatch", core.NewDomainError(core.ModuleScaler, core.ErrorCodeSchemaMismatch, "scaler expects 12 features, got 11"),
			`{"x":1}`, http.StatusUnprocessableEntity, core.ErrorCodeSchemaMismatch},
		{"transform failure", core.NewDomainError(core.ModulePipeline, core.ErrorCodeTransformFailure, "boom"),
			`{"x":1}`, http.StatusInternalServerError, core.ErrorCodeTransformFailure},
		{"deadline", context.DeadlineExceeded, `{"x":1}`, http.StatusGatewayTimeout, "DEADLINE_EXCEEDED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakePredictor{err: tt.err}, pipeline.ServerConfig{}, zaptest.NewLogger(t))
			w := do(t, s, http.MethodPost, "/v1/predict/churn", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.wantCode || resp.Error == "" {
				t.Errorf("response = %+v, want code %s", resp, tt.wantCode)
			}
		})
	}
}

func TestPredictCustomer_NoRecordSource(t *testing.T) {
	p := newRealPredictor(t)
	s := New(p, pipeline.ServerConfig{}, zaptest.NewLogger(t))
	w := do(t, s, http.MethodPost, "/v1/predict/churn/customers/15634602", "", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func newRealPredictor(t *testing.T) *pipeline.Predictor {
	t.Helper()
	build := func(ctx context.Context, data []byte, columns []string) (model.Model, error) {
		return model.ParseDenseModel(data)
	}
	b, err := artifact.Load(context.Background(), artifact.NewDirSource("../testdata/artifacts/churn"), artifact.Files{}, build)
	if err != nil {
		t.Fatal(err)
	}
	interp, _ := interpret.NewClassifier(0)
	pl, err := pipeline.New(pipeline.NameChurn, b, interp, pipeline.WithMonitor(feature.NewMonitor(16)))
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.NewPredictor([]*pipeline.Pipeline{pl})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPredict_EndToEnd(t *testing.T) {
	s := New(newRealPredictor(t), pipeline.ServerConfig{}, zaptest.NewLogger(t))
	body := `{"CreditScore": 600, "Geography": "France", "Gender": "Male", "Age": 35, "Tenure": 3,
		"Balance": 1000, "NumOfProducts": 1, "HasCrCard": 1, "IsActiveMember": 1, "EstimatedSalary": 50000}`

	w := do(t, s, http.MethodPost, "/v1/predict/churn", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if math.Abs(resp.Prediction.RawScore-0.04443269391277765) > 1e-9 {
		t.Errorf("raw = %v", resp.Prediction.RawScore)
	}
	if resp.Prediction.Churn == nil || resp.Prediction.Churn.Label != core.LabelNotChurn {
		t.Errorf("churn = %+v", resp.Prediction.Churn)
	}

	w = do(t, s, http.MethodPost, "/v1/predict/salary", body, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("salary status = %d, want 404", w.Code)
	}
}

func TestStats(t *testing.T) {
	s := New(newRealPredictor(t), pipeline.ServerConfig{}, zaptest.NewLogger(t))
	body := `{"CreditScore": 600, "Geography": "Other", "Gender": "Male", "Age": 35, "Tenure": 3,
		"Balance": 1000, "NumOfProducts": 1, "HasCrCard": 1, "IsActiveMember": 1, "EstimatedSalary": 50000}`
	if w := do(t, s, http.MethodPost, "/v1/predict/churn", body, nil); w.Code != http.StatusOK {
		t.Fatalf("predict status = %d", w.Code)
	}

	w := do(t, s, http.MethodGet, "/v1/stats/churn", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Enabled bool                 `json:"enabled"`
		Fields  []feature.FieldStats `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Enabled || len(resp.Fields) != 10 {
		t.Fatalf("stats = %+v", resp)
	}
	for _, f := range resp.Fields {
		if f.Field == "Geography" && f.UnknownCount != 1 {
			t.Errorf("Geography unknown count = %d, want 1", f.UnknownCount)
		}
	}

	if w := do(t, s, http.MethodGet, "/v1/stats/salary", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("salary stats status = %d, want 404", w.Code)
	}
}

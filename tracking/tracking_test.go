package tracking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
)

// stubModel is a fixed-output Model for logger tests.
type stubModel struct {
	predictErr error
	saveErr    error
}

func (m *stubModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func (m *stubModel) Save(w io.Writer) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	_, err := w.Write([]byte(`{"fitted":true}`))
	return err
}

// registerCall captures one RegisterModel invocation on the stub client.
type registerCall struct {
	runID        string
	artifactPath string
	name         string
}

// stubClient records every call and fails on demand.
type stubClient struct {
	failAll bool

	artifacts     map[string][]byte
	registerCalls []registerCall
	endStatus     string
}

func newStubClient() *stubClient {
	return &stubClient{artifacts: map[string][]byte{}}
}

func (c *stubClient) fail() error {
	if c.failAll {
		return errors.New("tracking server unavailable")
	}
	return nil
}

func (c *stubClient) CreateRun(context.Context, string) (*Run, error) {
	if err := c.fail(); err != nil {
		return nil, err
	}
	return &Run{ID: "run-1", ExperimentID: "exp-1"}, nil
}

func (c *stubClient) LogParam(context.Context, string, string, string) error { return c.fail() }

func (c *stubClient) LogMetric(context.Context, string, string, float64, int64) error {
	return c.fail()
}

func (c *stubClient) LogBatch(context.Context, string, []Param, []Metric) error { return c.fail() }

func (c *stubClient) SetTag(context.Context, string, string, string) error { return c.fail() }

func (c *stubClient) LogArtifact(_ context.Context, _ string, path string, data []byte) error {
	if err := c.fail(); err != nil {
		return err
	}
	c.artifacts[path] = data
	return nil
}

func (c *stubClient) RegisterModel(_ context.Context, runID, artifactPath, name string) (*ModelVersion, error) {
	if err := c.fail(); err != nil {
		return nil, err
	}
	c.registerCalls = append(c.registerCalls, registerCall{runID: runID, artifactPath: artifactPath, name: name})
	return &ModelVersion{Name: name, Version: "1"}, nil
}

func (c *stubClient) EndRun(_ context.Context, _ string, status string) error {
	if err := c.fail(); err != nil {
		return err
	}
	c.endStatus = status
	return nil
}

func TestInferSignature(t *testing.T) {
	X := mat.NewDense(5, 3, nil)
	pred := mat.NewDense(5, 1, nil)

	sig := InferSignature([]string{"square_feet", "num_bedrooms", "num_bathrooms"}, X, pred)

	require.Len(t, sig.Inputs, 3)
	assert.Equal(t, "square_feet", sig.Inputs[0].Name)
	assert.Equal(t, "double", sig.Inputs[0].Type)
	require.Len(t, sig.Outputs, 1)
	assert.Equal(t, "double", sig.Outputs[0].Type)
}

func TestInferSignatureFallbackNames(t *testing.T) {
	sig := InferSignature(nil, mat.NewDense(2, 2, nil), mat.NewDense(2, 1, nil))

	require.Len(t, sig.Inputs, 2)
	assert.Equal(t, "feature_0", sig.Inputs[0].Name)
	assert.Equal(t, "feature_1", sig.Inputs[1].Name)
}

func TestLogModelValidation(t *testing.T) {
	ctx := context.Background()
	client := newStubClient()
	run := &Run{ID: "run-1"}
	X := mat.NewDense(3, 2, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "empty artifact path",
			call: func() error {
				return LogModel(ctx, client, run, &stubModel{}, X, nil, "", "model", log.Nop())
			},
		},
		{
			name: "empty registered name",
			call: func() error {
				return LogModel(ctx, client, run, &stubModel{}, X, nil, "path", "", log.Nop())
			},
		},
		{
			name: "nil model",
			call: func() error {
				return LogModel(ctx, client, run, nil, X, nil, "path", "model", log.Nop())
			},
		},
		{
			name: "nil run",
			call: func() error {
				return LogModel(ctx, client, nil, &stubModel{}, X, nil, "path", "model", log.Nop())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			var valErr *errors.ValidationError
			assert.True(t, errors.As(err, &valErr), "error = %T, want *ValidationError", err)
		})
	}
}

func TestLogModelRegistersOnce(t *testing.T) {
	client := newStubClient()
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	X := mat.NewDense(4, 2, nil)

	err := LogModel(context.Background(), client, &Run{ID: "run-9"}, &stubModel{},
		X, []string{"a", "b"}, "housing-prices-estimator", "housing-prices-estimator-LR",
		provider.GetLogger())
	require.NoError(t, err)

	require.Len(t, client.registerCalls, 1)
	call := client.registerCalls[0]
	assert.Equal(t, "run-9", call.runID)
	assert.Equal(t, "housing-prices-estimator", call.artifactPath)
	assert.Equal(t, "housing-prices-estimator-LR", call.name)

	assert.Contains(t, client.artifacts, "housing-prices-estimator/model.json")
	assert.Contains(t, client.artifacts, "housing-prices-estimator/MLmodel")

	var metadata struct {
		Flavor    string    `json:"flavor"`
		Signature Signature `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(client.artifacts["housing-prices-estimator/MLmodel"], &metadata))
	assert.Equal(t, "housing-estimator/pipeline", metadata.Flavor)
	assert.Len(t, metadata.Signature.Inputs, 2)

	assert.True(t, provider.Contains(`"model":"housing-prices-estimator-LR"`),
		"success record must name the registered model")
}

// Every post-validation failure is swallowed so a dead tracking server never
// loses a trained model.
func TestLogModelSwallowsClientFailures(t *testing.T) {
	client := newStubClient()
	client.failAll = true
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	X := mat.NewDense(3, 2, nil)

	err := LogModel(context.Background(), client, &Run{ID: "run-1"}, &stubModel{},
		X, nil, "path", "model", provider.GetLogger())
	require.NoError(t, err)

	assert.True(t, provider.Contains("model logging failed"), "expected a warning record")
	assert.Empty(t, client.registerCalls)
}

func TestLogModelSwallowsModelFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
	}{
		{name: "predict fails", model: &stubModel{predictErr: errors.New("no weights")}},
		{name: "save fails", model: &stubModel{saveErr: errors.New("encode failed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient()
			provider, _ := log.NewTestLoggerProvider(log.LevelDebug)

			err := LogModel(context.Background(), client, &Run{ID: "run-1"}, tt.model,
				mat.NewDense(3, 2, nil), nil, "path", "model", provider.GetLogger())
			require.NoError(t, err)
			assert.True(t, provider.Contains("model logging failed"))
			assert.Empty(t, client.registerCalls)
		})
	}
}

func TestAutologgerRecordsTrials(t *testing.T) {
	client := newStubClient()
	auto := NewAutologger(context.Background(), client, &Run{ID: "run-1"}, log.Nop())

	// Recording must tolerate a failing client without panicking.
	auto.RecordTrial(0, map[string]float64{"lasso__alpha": 100}, 0.82, []float64{0.8, 0.83, 0.83})
	auto.RecordBest(map[string]float64{"lasso__alpha": 100}, 0.82)

	client.failAll = true
	auto.RecordTrial(1, map[string]float64{"lasso__alpha": 125}, 0.81, []float64{0.8, 0.82, 0.81})
	auto.RecordBest(map[string]float64{"lasso__alpha": 125}, 0.81)
}

func TestFileClientRoundTrip(t *testing.T) {
	root := t.TempDir()
	client, err := NewFileClient(root)
	require.NoError(t, err)

	ctx := context.Background()
	run, err := client.CreateRun(ctx, "housing-prices")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, client.LogParam(ctx, run.ID, "best_lasso__alpha", "250"))
	require.NoError(t, client.LogMetric(ctx, run.ID, "best_cv_r2", 0.87, 0))
	require.NoError(t, client.LogArtifact(ctx, run.ID, "model/model.json", []byte(`{}`)))

	version, err := client.RegisterModel(ctx, run.ID, "model", "housing-prices-estimator-LR")
	require.NoError(t, err)
	assert.Equal(t, "housing-prices-estimator-LR", version.Name)

	require.NoError(t, client.EndRun(ctx, run.ID, StatusFinished))

	artifact := filepath.Join(root, run.ID, "artifacts", "model", "model.json")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	status, err := os.ReadFile(filepath.Join(root, run.ID, "status.json"))
	require.NoError(t, err)
	assert.Contains(t, string(status), StatusFinished)
}

func TestFileClientRejectsEmptyDir(t *testing.T) {
	_, err := NewFileClient("")
	require.Error(t, err)
}

func TestRESTClientCreateRun(t *testing.T) {
	var gotPaths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path)
		switch r.URL.Path {
		case "/api/2.0/mlflow/experiments/get-by-name":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"experiment": map[string]string{"experiment_id": "7"},
			})
		case "/api/2.0/mlflow/runs/create":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "7", body["experiment_id"])
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"run": map[string]interface{}{
					"info": map[string]string{"run_id": "abc123"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewRESTClient(server.URL)
	require.NoError(t, err)

	run, err := client.CreateRun(context.Background(), "housing-prices")
	require.NoError(t, err)
	assert.Equal(t, "abc123", run.ID)
	assert.Equal(t, "7", run.ExperimentID)
	assert.Equal(t, []string{
		"/api/2.0/mlflow/experiments/get-by-name",
		"/api/2.0/mlflow/runs/create",
	}, gotPaths)
}

func TestRESTClientCreatesMissingExperiment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/2.0/mlflow/experiments/get-by-name":
			http.Error(w, `{"error_code":"RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
		case "/api/2.0/mlflow/experiments/create":
			_ = json.NewEncoder(w).Encode(map[string]string{"experiment_id": "11"})
		case "/api/2.0/mlflow/runs/create":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"run": map[string]interface{}{
					"info": map[string]string{"run_id": "fresh"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewRESTClient(server.URL)
	require.NoError(t, err)

	run, err := client.CreateRun(context.Background(), "brand-new")
	require.NoError(t, err)
	assert.Equal(t, "fresh", run.ID)
	assert.Equal(t, "11", run.ExperimentID)
}

func TestRESTClientRegisterModelToleratesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/2.0/mlflow/registered-models/create":
			http.Error(w, `{"error_code":"RESOURCE_ALREADY_EXISTS"}`, http.StatusBadRequest)
		case "/api/2.0/mlflow/model-versions/create":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "runs:/run-1/model", body["source"])
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"model_version": map[string]string{"name": "existing", "version": "4"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewRESTClient(server.URL)
	require.NoError(t, err)

	version, err := client.RegisterModel(context.Background(), "run-1", "model", "existing")
	require.NoError(t, err)
	assert.Equal(t, "4", version.Version)
}

func TestRESTClientLogArtifact(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPut, r.Method)
	}))
	defer server.Close()

	client, err := NewRESTClient(server.URL)
	require.NoError(t, err)

	err = client.LogArtifact(context.Background(), "run-1", "model/model.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "/api/2.0/mlflow-artifacts/artifacts/run-1/model/model.json", gotPath)
	assert.Equal(t, `{"a":1}`, string(gotBody))
}

func TestRESTClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewRESTClient(server.URL)
	require.NoError(t, err)

	err = client.LogParam(context.Background(), "run-1", "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

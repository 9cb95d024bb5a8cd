package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
)

// EnvTrackingURI is the environment variable holding the tracking server URL.
const EnvTrackingURI = "MLFLOW_TRACKING_URI"

const apiPrefix = "/api/2.0/mlflow"

// RESTClient talks to an MLflow-compatible tracking server over its REST
// surface.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// RESTOption configures a RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTClient) {
		c.httpClient = client
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger log.Logger) RESTOption {
	return func(c *RESTClient) {
		c.logger = logger
	}
}

// NewRESTClient creates a client for the tracking server at baseURL.
func NewRESTClient(baseURL string, opts ...RESTOption) (*RESTClient, error) {
	if baseURL == "" {
		return nil, errors.NewConfigurationError(EnvTrackingURI, "tracking URI is empty")
	}
	client := &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewRESTClientFromEnv creates a client from MLFLOW_TRACKING_URI.
func NewRESTClientFromEnv(opts ...RESTOption) (*RESTClient, error) {
	uri := os.Getenv(EnvTrackingURI)
	if uri == "" {
		return nil, errors.NewConfigurationError(EnvTrackingURI, "environment variable is not set")
	}
	return NewRESTClient(uri, opts...)
}

// CreateRun implements Client.CreateRun.
func (c *RESTClient) CreateRun(ctx context.Context, experimentName string) (*Run, error) {
	experimentID, err := c.ensureExperiment(ctx, experimentName)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	err = c.post(ctx, "/runs/create", map[string]interface{}{
		"experiment_id": experimentID,
		"start_time":    time.Now().UnixMilli(),
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.Info("run created", log.RunIDKey, resp.Run.Info.RunID, "experiment", experimentName)
	return &Run{ID: resp.Run.Info.RunID, ExperimentID: experimentID}, nil
}

// ensureExperiment resolves an experiment name to its ID, creating the
// experiment when the server does not know it.
func (c *RESTClient) ensureExperiment(ctx context.Context, name string) (string, error) {
	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := c.get(ctx, "/experiments/get-by-name", url.Values{"experiment_name": {name}}, &got)
	if err == nil {
		return got.Experiment.ExperimentID, nil
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.post(ctx, "/experiments/create", map[string]interface{}{"name": name}, &created); err != nil {
		return "", err
	}
	return created.ExperimentID, nil
}

// LogParam implements Client.LogParam.
func (c *RESTClient) LogParam(ctx context.Context, runID, key, value string) error {
	return c.post(ctx, "/runs/log-parameter", map[string]interface{}{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

// LogMetric implements Client.LogMetric.
func (c *RESTClient) LogMetric(ctx context.Context, runID, key string, value float64, step int64) error {
	return c.post(ctx, "/runs/log-metric", map[string]interface{}{
		"run_id":    runID,
		"key":       key,
		"value":     value,
		"timestamp": time.Now().UnixMilli(),
		"step":      step,
	}, nil)
}

// LogBatch implements Client.LogBatch.
func (c *RESTClient) LogBatch(ctx context.Context, runID string, params []Param, metrics []Metric) error {
	return c.post(ctx, "/runs/log-batch", map[string]interface{}{
		"run_id":  runID,
		"params":  params,
		"metrics": metrics,
	}, nil)
}

// SetTag implements Client.SetTag.
func (c *RESTClient) SetTag(ctx context.Context, runID, key, value string) error {
	return c.post(ctx, "/runs/set-tag", map[string]interface{}{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

// LogArtifact implements Client.LogArtifact using the tracking server's
// artifact proxy.
func (c *RESTClient) LogArtifact(ctx context.Context, runID, path string, data []byte) error {
	endpoint := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s", c.baseURL, runID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "tracking: build artifact request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req, nil)
}

// RegisterModel implements Client.RegisterModel. Registering an
// already-known model name is not an error; a new version is created under
// it.
func (c *RESTClient) RegisterModel(ctx context.Context, runID, artifactPath, name string) (*ModelVersion, error) {
	err := c.post(ctx, "/registered-models/create", map[string]interface{}{"name": name}, nil)
	if err != nil && !strings.Contains(err.Error(), "RESOURCE_ALREADY_EXISTS") {
		return nil, err
	}

	source := fmt.Sprintf("runs:/%s/%s", runID, artifactPath)
	var resp struct {
		ModelVersion struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Source  string `json:"source"`
		} `json:"model_version"`
	}
	err = c.post(ctx, "/model-versions/create", map[string]interface{}{
		"name":   name,
		"source": source,
		"run_id": runID,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.Info("model registered",
		log.RunIDKey, runID,
		"name", resp.ModelVersion.Name,
		"version", resp.ModelVersion.Version,
	)
	return &ModelVersion{
		Name:    resp.ModelVersion.Name,
		Version: resp.ModelVersion.Version,
		Source:  resp.ModelVersion.Source,
	}, nil
}

// EndRun implements Client.EndRun.
func (c *RESTClient) EndRun(ctx context.Context, runID, status string) error {
	return c.post(ctx, "/runs/update", map[string]interface{}{
		"run_id":   runID,
		"status":   status,
		"end_time": time.Now().UnixMilli(),
	}, nil)
}

func (c *RESTClient) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "tracking: marshal request for %s", endpoint)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiPrefix+endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "tracking: build request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RESTClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+apiPrefix+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return errors.Wrapf(err, "tracking: build request for %s", endpoint)
	}
	return c.do(req, out)
}

func (c *RESTClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "tracking: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "tracking: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("tracking: %s %s returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrap(err, "tracking: decode response")
		}
	}
	return nil
}

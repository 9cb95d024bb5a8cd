package tracking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// FileClient records runs under a local directory. It is the fallback used
// when no tracking server is configured, mirroring a local tracking store:
//
//	<root>/<run_id>/params.json
//	<root>/<run_id>/metrics.json
//	<root>/<run_id>/tags.json
//	<root>/<run_id>/artifacts/<path>
//	<root>/models.json
type FileClient struct {
	root string
}

// NewFileClient creates a file-backed tracking client rooted at dir.
func NewFileClient(dir string) (*FileClient, error) {
	if dir == "" {
		return nil, errors.NewConfigurationError("tracking_dir", "directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "tracking: create store directory")
	}
	return &FileClient{root: dir}, nil
}

// CreateRun implements Client.CreateRun.
func (c *FileClient) CreateRun(_ context.Context, experimentName string) (*Run, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "tracking: generate run id")
	}
	runID := hex.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Join(c.root, runID, "artifacts"), 0o755); err != nil {
		return nil, errors.Wrap(err, "tracking: create run directory")
	}
	meta := map[string]interface{}{
		"run_id":     runID,
		"experiment": experimentName,
		"start_time": time.Now().UnixMilli(),
	}
	if err := c.writeJSON(runID, "meta.json", meta); err != nil {
		return nil, err
	}
	return &Run{ID: runID, ExperimentID: experimentName}, nil
}

// LogParam implements Client.LogParam.
func (c *FileClient) LogParam(_ context.Context, runID, key, value string) error {
	return c.appendJSON(runID, "params.json", Param{Key: key, Value: value})
}

// LogMetric implements Client.LogMetric.
func (c *FileClient) LogMetric(_ context.Context, runID, key string, value float64, step int64) error {
	return c.appendJSON(runID, "metrics.json", Metric{
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		Step:      step,
	})
}

// LogBatch implements Client.LogBatch.
func (c *FileClient) LogBatch(ctx context.Context, runID string, params []Param, metrics []Metric) error {
	for _, p := range params {
		if err := c.LogParam(ctx, runID, p.Key, p.Value); err != nil {
			return err
		}
	}
	for _, m := range metrics {
		if err := c.appendJSON(runID, "metrics.json", m); err != nil {
			return err
		}
	}
	return nil
}

// SetTag implements Client.SetTag.
func (c *FileClient) SetTag(_ context.Context, runID, key, value string) error {
	return c.appendJSON(runID, "tags.json", Param{Key: key, Value: value})
}

// LogArtifact implements Client.LogArtifact.
func (c *FileClient) LogArtifact(_ context.Context, runID, path string, data []byte) error {
	dest := filepath.Join(c.root, runID, "artifacts", filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "tracking: create artifact directory")
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.Wrap(err, "tracking: write artifact")
	}
	return nil
}

// RegisterModel implements Client.RegisterModel.
func (c *FileClient) RegisterModel(_ context.Context, runID, artifactPath, name string) (*ModelVersion, error) {
	version := &ModelVersion{
		Name:    name,
		Version: "1",
		Source:  filepath.Join(c.root, runID, "artifacts", artifactPath),
	}
	record := map[string]interface{}{
		"name":    version.Name,
		"version": version.Version,
		"source":  version.Source,
		"run_id":  runID,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "tracking: marshal model record")
	}
	f, err := os.OpenFile(filepath.Join(c.root, "models.json"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "tracking: open model registry")
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return nil, errors.Wrap(err, "tracking: write model record")
	}
	return version, nil
}

// EndRun implements Client.EndRun.
func (c *FileClient) EndRun(_ context.Context, runID, status string) error {
	return c.writeJSON(runID, "status.json", map[string]interface{}{
		"status":   status,
		"end_time": time.Now().UnixMilli(),
	})
}

func (c *FileClient) writeJSON(runID, name string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "tracking: marshal record")
	}
	if err := os.WriteFile(filepath.Join(c.root, runID, name), payload, 0o644); err != nil {
		return errors.Wrap(err, "tracking: write record")
	}
	return nil
}

func (c *FileClient) appendJSON(runID, name string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "tracking: marshal record")
	}
	f, err := os.OpenFile(filepath.Join(c.root, runID, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "tracking: open record file")
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return errors.Wrap(err, "tracking: append record")
	}
	return nil
}

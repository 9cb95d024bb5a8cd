// Package tracking integrates the pipeline with an experiment-tracking
// service: one run per execution, parameter/metric capture during the grid
// search, and best-effort model registration at the end.
//
// The run handle is threaded explicitly through the trainer and the model
// logger; there is no ambient global run state.
package tracking

import (
	"context"
)

// Run statuses reported to the tracking service.
const (
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
)

// Param is a logged key/value parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metric is a logged metric observation.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

// Run is the handle of one tracked execution.
type Run struct {
	ID           string
	ExperimentID string
}

// ModelVersion identifies one registered model version.
type ModelVersion struct {
	Name    string
	Version string
	Source  string
}

// Client is the tracking-service contract. Exactly one run is opened per
// pipeline execution; the model logger registers exactly one artifact inside
// it.
type Client interface {
	// CreateRun opens a new run in the named experiment, creating the
	// experiment when it does not exist yet.
	CreateRun(ctx context.Context, experimentName string) (*Run, error)

	// LogParam records a single parameter on the run.
	LogParam(ctx context.Context, runID, key, value string) error

	// LogMetric records a single metric observation on the run.
	LogMetric(ctx context.Context, runID, key string, value float64, step int64) error

	// LogBatch records parameters and metrics in one call.
	LogBatch(ctx context.Context, runID string, params []Param, metrics []Metric) error

	// SetTag sets a tag on the run.
	SetTag(ctx context.Context, runID, key, value string) error

	// LogArtifact stores an artifact blob under the given path within the run.
	LogArtifact(ctx context.Context, runID, path string, data []byte) error

	// RegisterModel registers the run's artifact under a model registry name.
	RegisterModel(ctx context.Context, runID, artifactPath, name string) (*ModelVersion, error)

	// EndRun closes the run with a terminal status.
	EndRun(ctx context.Context, runID, status string) error
}

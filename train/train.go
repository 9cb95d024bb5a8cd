// Package train orchestrates the full training pipeline: load the dataset,
// split it, grid-search the housing pipeline, and register the fitted model
// with the tracking service, all inside a single tracked run.
package train

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/dataset"
	"github.com/itu-sdse/housing-estimator/modelselection"
	"github.com/itu-sdse/housing-estimator/pipeline"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
	"github.com/itu-sdse/housing-estimator/preprocessing"
	"github.com/itu-sdse/housing-estimator/tracking"
)

// Defaults of the housing-price training run.
const (
	DefaultExperiment          = "housing-prices"
	DefaultArtifactPath        = "housing-prices-estimator"
	DefaultRegisteredModelName = "housing-prices-estimator-LR"
	DefaultCVFolds             = 3
)

// Config holds everything one training run needs.
type Config struct {
	Dataset             dataset.Config
	Experiment          string
	ArtifactPath        string
	RegisteredModelName string
	ParamGrid           modelselection.ParamGrid
	CVFolds             int
}

// DefaultConfig returns the standard run configuration: alpha candidates
// [100, 1000) stepped by 25, 3-fold cross-validation, and the housing
// estimator registry names.
func DefaultConfig(ds dataset.Config) Config {
	return Config{
		Dataset:             ds,
		Experiment:          DefaultExperiment,
		ArtifactPath:        DefaultArtifactPath,
		RegisteredModelName: DefaultRegisteredModelName,
		ParamGrid: modelselection.ParamGrid{
			"lasso__alpha": DefaultAlphaGrid(),
		},
		CVFolds: DefaultCVFolds,
	}
}

// DefaultAlphaGrid enumerates the regularization-strength candidates:
// the integer range [100, 1000) stepped by 25, 36 candidates in total.
func DefaultAlphaGrid() []float64 {
	var alphas []float64
	for alpha := 100; alpha < 1000; alpha += 25 {
		alphas = append(alphas, float64(alpha))
	}
	return alphas
}

// Loader is the data-loading stage. The production loader is dataset.Load;
// tests inject synthetic data here.
type Loader func(ctx context.Context, cfg dataset.Config, logger log.Logger) (*dataset.Dataset, error)

// Result is the outcome of one training run.
type Result struct {
	// Search holds the fitted grid search, including the best pipeline.
	Search *modelselection.GridSearchCV

	// Run is the tracking run that wrapped the execution.
	Run *tracking.Run

	// TestScore is the best pipeline's R² on the held-out test partition.
	TestScore float64

	// Elapsed is the total wall-clock training time.
	Elapsed time.Duration
}

// Run executes the pipeline end to end. One tracking run wraps every stage
// and is closed on every exit path; its terminal status reflects whether
// training succeeded. All failures except model logging are fatal and
// propagate.
func Run(ctx context.Context, cfg Config, loader Loader, client tracking.Client, provider log.LoggerProvider) (result *Result, err error) {
	if loader == nil {
		return nil, errors.NewValidationError("loader", "must not be nil", nil)
	}
	if client == nil {
		return nil, errors.NewValidationError("client", "must not be nil", nil)
	}
	if provider == nil {
		return nil, errors.NewValidationError("provider", "must not be nil", nil)
	}
	logger := provider.GetLoggerWithName("train")

	started := time.Now()
	logger.Info("training model", "experiment", cfg.Experiment)

	run, err := client.CreateRun(ctx, cfg.Experiment)
	if err != nil {
		return nil, errors.Wrap(err, "open tracking run")
	}
	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
		}
		if endErr := client.EndRun(ctx, run.ID, status); endErr != nil {
			logger.Warn("failed to close tracking run", log.RunIDKey, run.ID, log.ErrAttrKey, endErr)
		}
	}()

	ds, err := loader(ctx, cfg.Dataset, provider.GetLoggerWithName("dataset"))
	if err != nil {
		return nil, err
	}

	XTrain, XTest, yTrain, yTest, err := preprocessing.Split(ds)
	if err != nil {
		return nil, err
	}
	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	logger.Info("dataset split",
		log.OperationKey, "split",
		"train_rows", trainRows,
		"test_rows", testRows,
	)

	pipe := pipeline.NewHousingPipeline()
	search := modelselection.NewGridSearchCV(pipe, cfg.ParamGrid,
		modelselection.WithCV(cfg.CVFolds),
		modelselection.WithTrialRecorder(tracking.NewAutologger(ctx, client, run, logger)),
		modelselection.WithLogger(provider.GetLoggerWithName("modelselection")),
	)

	yTrainMat := vecToColumn(yTrain)
	if err = search.Fit(XTrain, yTrainMat); err != nil {
		return nil, err
	}

	testScore, err := search.Score(XTest, vecToColumn(yTest))
	if err != nil {
		return nil, errors.NewTrainingError("train.Run", err)
	}
	if logErr := client.LogMetric(ctx, run.ID, "test_r2", testScore, 0); logErr != nil {
		logger.Warn("failed to log test score", log.RunIDKey, run.ID, log.ErrAttrKey, logErr)
	}

	// Best-effort: registration failures warn and never abort the run.
	if err = tracking.LogModel(ctx, client, run, pipe, XTrain,
		preprocessing.FeatureColumns, cfg.ArtifactPath, cfg.RegisteredModelName, logger); err != nil {
		return nil, err
	}

	elapsed := time.Since(started)
	logger.Info("training finished",
		log.ScoreKey, search.BestScore,
		log.AlphaKey, search.BestParams["lasso__alpha"],
		"test_r2", testScore,
		log.DurationSecondsKey, elapsed.Seconds(),
	)

	return &Result{
		Search:    search,
		Run:       run,
		TestScore: testScore,
		Elapsed:   elapsed,
	}, nil
}

// vecToColumn copies a vector into the n×1 matrix shape estimators expect.
func vecToColumn(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}

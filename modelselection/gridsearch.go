package modelselection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/metrics"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
	"github.com/itu-sdse/housing-estimator/pkg/log"
)

// Estimator is the contract grid search requires from the model under
// search. Pipeline satisfies it; parameters are addressed with the
// step__param convention, e.g. "lasso__alpha".
type Estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	SetParams(params map[string]interface{}) error
}

// ParamGrid enumerates the hyperparameter candidates to evaluate, keyed by
// parameter name.
type ParamGrid map[string][]float64

// Candidates expands the grid into the cartesian product of all parameter
// values. Keys are visited in sorted order so the enumeration is
// deterministic, which also fixes how mean-score ties break (first wins).
func (g ParamGrid) Candidates() []map[string]float64 {
	keys := make([]string, 0, len(g))
	for key := range g {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	candidates := []map[string]float64{{}}
	for _, key := range keys {
		expanded := make([]map[string]float64, 0, len(candidates)*len(g[key]))
		for _, base := range candidates {
			for _, value := range g[key] {
				candidate := make(map[string]float64, len(base)+1)
				for k, v := range base {
					candidate[k] = v
				}
				candidate[key] = value
				expanded = append(expanded, candidate)
			}
		}
		candidates = expanded
	}
	return candidates
}

// TrialRecorder receives every candidate's parameters and scores as an
// observational side effect of fitting. The tracking autologger implements
// it; recording never changes the search result.
type TrialRecorder interface {
	RecordTrial(index int, params map[string]float64, meanScore float64, foldScores []float64)
	RecordBest(params map[string]float64, bestScore float64)
}

// CandidateResult holds the cross-validation outcome for one candidate.
type CandidateResult struct {
	Params     map[string]float64
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
}

// GridSearchCV evaluates every candidate in a parameter grid with k-fold
// cross-validation scored by R², then refits the best candidate on the full
// training partition.
type GridSearchCV struct {
	estimator Estimator
	paramGrid ParamGrid
	cv        int
	recorder  TrialRecorder
	logger    log.Logger
	fitted    bool

	// BestParams holds the winning candidate's parameters after Fit.
	BestParams map[string]float64

	// BestScore is the winning candidate's mean cross-validation R².
	BestScore float64

	// BestEstimator is the estimator refit with BestParams on the full
	// training partition.
	BestEstimator Estimator

	// CVResults holds the per-candidate cross-validation outcomes in
	// enumeration order.
	CVResults []CandidateResult
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithCV sets the number of cross-validation folds (default 3).
func WithCV(cv int) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.cv = cv
	}
}

// WithTrialRecorder attaches a recorder that observes every candidate.
func WithTrialRecorder(recorder TrialRecorder) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.recorder = recorder
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger log.Logger) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.logger = logger
	}
}

// NewGridSearchCV creates a grid search over the given estimator and grid.
func NewGridSearchCV(estimator Estimator, paramGrid ParamGrid, opts ...GridSearchOption) *GridSearchCV {
	gs := &GridSearchCV{
		estimator: estimator,
		paramGrid: paramGrid,
		cv:        3,
		logger:    log.Nop(),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Fit runs the search. Argument validation happens before the estimator is
// touched; any fitting failure inside the search is wrapped as a
// TrainingError and aborts the run.
func (gs *GridSearchCV) Fit(X, y mat.Matrix) error {
	if gs.estimator == nil {
		return errors.NewValidationError("estimator", "must not be nil", nil)
	}
	if len(gs.paramGrid) == 0 {
		return errors.NewValidationError("param_grid", "must be a non-empty mapping from parameter name to candidate values", gs.paramGrid)
	}
	for name, values := range gs.paramGrid {
		if len(values) == 0 {
			return errors.NewValidationError("param_grid", "candidate list must not be empty", name)
		}
	}
	if gs.cv < 2 {
		return errors.NewValidationError("cv", "must be at least 2", gs.cv)
	}

	n, _ := X.Dims()
	ny, cy := y.Dims()
	if ny != n {
		return errors.NewDimensionError("GridSearchCV.Fit", n, ny, 0)
	}
	if cy != 1 {
		return errors.NewValueError("GridSearchCV.Fit", "y must be a column vector")
	}
	if n < gs.cv {
		return errors.NewValidationError("cv", "more folds than samples", gs.cv)
	}

	candidates := gs.paramGrid.Candidates()
	splitter, err := NewKFold(gs.cv, false, 0)
	if err != nil {
		return err
	}
	folds := splitter.Split(n)

	gs.CVResults = make([]CandidateResult, 0, len(candidates))
	bestIdx := -1
	bestScore := math.Inf(-1)

	for idx, params := range candidates {
		if err := gs.estimator.SetParams(toParamMap(params)); err != nil {
			return err
		}

		foldScores := make([]float64, 0, len(folds))
		for _, fold := range folds {
			trainX, trainY := extractSubset(X, y, fold.TrainIndices)
			testX, testY := extractSubset(X, y, fold.TestIndices)

			if err := gs.estimator.Fit(trainX, trainY); err != nil {
				return errors.NewTrainingError("GridSearchCV.Fit", err)
			}
			pred, err := gs.estimator.Predict(testX)
			if err != nil {
				return errors.NewTrainingError("GridSearchCV.Fit", err)
			}
			score, err := metrics.R2ScoreMatrix(testY, pred)
			if err != nil {
				return errors.NewTrainingError("GridSearchCV.Fit", err)
			}
			foldScores = append(foldScores, score)
		}

		mean := meanOf(foldScores)
		result := CandidateResult{
			Params:     params,
			FoldScores: foldScores,
			MeanScore:  mean,
			StdScore:   stdOf(foldScores, mean),
		}
		gs.CVResults = append(gs.CVResults, result)

		gs.logger.Debug("candidate evaluated",
			log.OperationKey, "grid_search",
			"candidate", idx,
			"params", params,
			log.ScoreKey, mean,
		)
		if gs.recorder != nil {
			gs.recorder.RecordTrial(idx, params, mean, foldScores)
		}

		if mean > bestScore {
			bestScore = mean
			bestIdx = idx
		}
	}

	// NaN scores never compare above the -Inf start, so a degenerate scoring
	// run leaves no winner to refit.
	if bestIdx < 0 {
		return errors.NewTrainingError("GridSearchCV.Fit",
			errors.New("no candidate produced a comparable score; all cross-validation scores are NaN"))
	}

	// Refit the winning candidate on the entire training partition.
	gs.BestParams = candidates[bestIdx]
	gs.BestScore = bestScore
	if err := gs.estimator.SetParams(toParamMap(gs.BestParams)); err != nil {
		return err
	}
	if err := gs.estimator.Fit(X, y); err != nil {
		return errors.NewTrainingError("GridSearchCV.Fit", err)
	}
	gs.BestEstimator = gs.estimator
	gs.fitted = true

	gs.logger.Info("grid search finished",
		log.OperationKey, "grid_search",
		"candidates", len(candidates),
		"best_params", gs.BestParams,
		log.ScoreKey, gs.BestScore,
	)
	if gs.recorder != nil {
		gs.recorder.RecordBest(gs.BestParams, gs.BestScore)
	}
	return nil
}

// Predict delegates to the refit best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gs.fitted {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.BestEstimator.Predict(X)
}

// Score computes R² of the refit best estimator on (X, y).
func (gs *GridSearchCV) Score(X, y mat.Matrix) (float64, error) {
	if !gs.fitted {
		return 0, errors.NewNotFittedError("GridSearchCV", "Score")
	}
	pred, err := gs.BestEstimator.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

func toParamMap(params map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for key, value := range params {
		out[key] = value
	}
	return out
}

// extractSubset copies the selected rows of X and y into new matrices.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, c := X.Dims()
	outX := mat.NewDense(len(indices), c, nil)
	outY := mat.NewDense(len(indices), 1, nil)

	for i, idx := range indices {
		for j := 0; j < c; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.Set(i, 0, y.At(idx, 0))
	}
	return outX, outY
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdOf(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

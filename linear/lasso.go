// Package linear provides the regularized linear regressor used as the final
// pipeline stage.
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/core/model"
	"github.com/itu-sdse/housing-estimator/metrics"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// Lasso is a linear regressor trained with L1 regularization. The objective
// minimized is
//
//	(1 / (2n)) * ||y - Xw||² + alpha * ||w||₁
//
// solved by cyclic coordinate descent with soft-thresholding on centered
// data. The sole hyperparameter exposed to grid search is Alpha.
type Lasso struct {
	model.BaseEstimator

	// Alpha is the L1 regularization strength.
	Alpha float64

	// MaxIter is the coordinate descent iteration limit.
	MaxIter int

	// Tol stops the descent once the largest coefficient update in a full
	// cycle falls below it.
	Tol float64

	// Weights holds the fitted coefficients.
	Weights *mat.VecDense

	// Intercept holds the fitted intercept.
	Intercept float64

	// NFeatures is the number of features seen at fit time.
	NFeatures int

	// NIter is the number of descent cycles actually run.
	NIter int
}

// NewLasso creates a Lasso regressor. Defaults match the usual library
// settings: alpha=1.0, max_iter=1000, tol=1e-4.
func NewLasso(opts ...Option) *Lasso {
	l := &Lasso{
		Alpha:   1.0,
		MaxIter: 1000,
		Tol:     1e-4,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fit trains the regressor with cyclic coordinate descent. Reaching the
// iteration limit raises a ConvergenceWarning but does not fail the fit.
func (l *Lasso) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("Lasso.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("Lasso.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("Lasso.Fit", "y must be a column vector")
	}
	if l.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", l.Alpha)
	}

	n := float64(r)

	// Center X and y; the intercept is recovered from the column means after
	// the descent so it is never penalized.
	colMean := make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		colMean[j] = sum / n
	}
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= n

	Xc := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			Xc.Set(i, j, X.At(i, j)-colMean[j])
		}
	}

	// Per-column squared norms; constant columns keep a zero coefficient.
	colNorm := make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			v := Xc.At(i, j)
			sum += v * v
		}
		colNorm[j] = sum
	}

	w := make([]float64, c)
	residual := make([]float64, r)
	for i := 0; i < r; i++ {
		residual[i] = y.At(i, 0) - yMean
	}

	threshold := l.Alpha * n
	converged := false
	iter := 0
	for ; iter < l.MaxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < c; j++ {
			if colNorm[j] == 0 {
				continue
			}

			// rho is the partial correlation of column j with the residual,
			// with column j's own contribution added back.
			rho := 0.0
			for i := 0; i < r; i++ {
				rho += Xc.At(i, j) * (residual[i] + Xc.At(i, j)*w[j])
			}

			newW := softThreshold(rho, threshold) / colNorm[j]
			delta := newW - w[j]
			if delta != 0 {
				for i := 0; i < r; i++ {
					residual[i] -= Xc.At(i, j) * delta
				}
				w[j] = newW
			}
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		if maxDelta < l.Tol {
			converged = true
			iter++
			break
		}
	}
	l.NIter = iter

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Lasso", l.MaxIter, ""))
	}

	for i := range w {
		if math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
			return errors.NewModelError("Lasso.Fit", "numerical instability",
				errors.Newf("coefficient %d is %v", i, w[i]))
		}
	}

	l.NFeatures = c
	l.Weights = mat.NewVecDense(c, w)
	l.Intercept = yMean
	for j := 0; j < c; j++ {
		l.Intercept -= colMean[j] * w[j]
	}

	l.SetFitted()
	return nil
}

// softThreshold is the proximal operator of the L1 penalty.
func softThreshold(value, threshold float64) float64 {
	switch {
	case value > threshold:
		return value - threshold
	case value < -threshold:
		return value + threshold
	default:
		return 0
	}
}

// Predict computes y = X*w + intercept for each row of X.
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Lasso", "Predict")
	}

	r, c := X.Dims()
	if c != l.NFeatures {
		return nil, errors.NewDimensionError("Lasso.Predict", l.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := l.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * l.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score computes the coefficient of determination (R²) on (X, y).
func (l *Lasso) Score(X, y mat.Matrix) (float64, error) {
	if !l.IsFitted() {
		return 0, errors.NewNotFittedError("Lasso", "Score")
	}
	pred, err := l.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetWeights returns the fitted coefficients.
func (l *Lasso) GetWeights() []float64 {
	if l.Weights == nil {
		return nil
	}
	weights := make([]float64, l.Weights.Len())
	for i := 0; i < l.Weights.Len(); i++ {
		weights[i] = l.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept returns the fitted intercept.
func (l *Lasso) GetIntercept() float64 {
	if !l.IsFitted() {
		return 0
	}
	return l.Intercept
}

// GetParams returns the regressor hyperparameters.
func (l *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":    l.Alpha,
		"max_iter": l.MaxIter,
		"tol":      l.Tol,
	}
}

// SetParams updates hyperparameters. Setting any parameter resets the fitted
// state; unknown keys are rejected.
func (l *Lasso) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError("alpha", "must be numeric", value)
			}
			if v < 0 {
				return errors.NewValidationError("alpha", "must be non-negative", value)
			}
			l.Alpha = v
		case "max_iter":
			v, ok := toInt(value)
			if !ok || v <= 0 {
				return errors.NewValidationError("max_iter", "must be a positive integer", value)
			}
			l.MaxIter = v
		case "tol":
			v, ok := toFloat(value)
			if !ok || v <= 0 {
				return errors.NewValidationError("tol", "must be a positive number", value)
			}
			l.Tol = v
		default:
			return errors.NewValidationError(key, "unknown parameter for Lasso", value)
		}
	}
	l.Reset()
	return nil
}

// ExportState returns the fitted parameters for model serialization.
func (l *Lasso) ExportState() map[string]interface{} {
	return map[string]interface{}{
		"alpha":      l.Alpha,
		"coef":       l.GetWeights(),
		"intercept":  l.Intercept,
		"n_features": l.NFeatures,
		"n_iter":     l.NIter,
	}
}

// String returns a readable representation of the regressor.
func (l *Lasso) String() string {
	return fmt.Sprintf("Lasso(alpha=%g, max_iter=%d, tol=%g)", l.Alpha, l.MaxIter, l.Tol)
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == math.Trunc(val) {
			return int(val), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Package pipeline chains transformers and a final estimator into a single
// composable model, mirroring the sklearn Pipeline contract.
package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/core/model"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// Step is a single named stage in the pipeline.
type Step struct {
	Name      string
	Estimator interface{} // Transformer for intermediate steps, estimator for the final one
}

// Pipeline chains transformers and optionally a final estimator.
// Intermediate steps must be transformers; the final step must expose
// Fit(X, y) and Predict.
type Pipeline struct {
	model.BaseEstimator

	steps      []Step
	namedSteps map[string]interface{}
}

// New creates a new Pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	namedSteps := make(map[string]interface{}, len(steps))
	for _, step := range steps {
		namedSteps[step.Name] = step.Estimator
	}
	return &Pipeline{
		steps:      steps,
		namedSteps: namedSteps,
	}
}

// Fit fits all transformers one after the other, transforming the data at
// each step, then fits the final estimator on the transformed data.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if len(p.steps) == 0 {
		return errors.NewValidationError("steps", "pipeline must contain at least one step", nil)
	}

	Xt := X
	var err error

	for i := 0; i < len(p.steps)-1; i++ {
		step := p.steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return errors.NewValidationError("pipeline step",
				"all intermediate steps must be transformers", step.Name)
		}
		if err = transformer.Fit(Xt); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", step.Name))
		}
		Xt, err = transformer.Transform(Xt)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
	}

	finalStep := p.steps[len(p.steps)-1]
	fitter, ok := finalStep.Estimator.(interface {
		Fit(mat.Matrix, mat.Matrix) error
	})
	if !ok {
		return errors.NewValidationError("pipeline final step",
			"final step must have a Fit method", finalStep.Name)
	}
	if err = fitter.Fit(Xt, y); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to fit final step '%s'", finalStep.Name))
	}

	p.SetFitted()
	return nil
}

// Predict applies all transforms and predicts with the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	finalStep := p.steps[len(p.steps)-1]
	predictor, ok := finalStep.Estimator.(interface {
		Predict(mat.Matrix) (mat.Matrix, error)
	})
	if !ok {
		return nil, errors.NewValidationError("pipeline final step",
			"final step must have a Predict method", finalStep.Name)
	}
	return predictor.Predict(Xt)
}

// Score applies all transforms and scores with the final estimator.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	if !p.IsFitted() {
		return 0, errors.NewNotFittedError("Pipeline", "Score")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return 0, err
	}

	finalStep := p.steps[len(p.steps)-1]
	scorer, ok := finalStep.Estimator.(interface {
		Score(mat.Matrix, mat.Matrix) (float64, error)
	})
	if !ok {
		return 0, errors.NewValidationError("pipeline final step",
			"final step must have a Score method", finalStep.Name)
	}
	return scorer.Score(Xt, y)
}

// transform applies all transforms except the final estimator.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	var err error

	for i := 0; i < len(p.steps)-1; i++ {
		step := p.steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError("pipeline step",
				"intermediate steps must be transformers", step.Name)
		}
		Xt, err = transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
	}
	return Xt, nil
}

// GetParams returns the parameters of every step, prefixed with the step
// name in the step__param convention.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.steps {
		getter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		})
		if !ok {
			continue
		}
		for key, value := range getter.GetParams() {
			params[fmt.Sprintf("%s__%s", step.Name, key)] = value
		}
	}
	return params
}

// SetParams routes parameters to steps using the step__param convention,
// e.g. "lasso__alpha". Every routed update resets the pipeline's fitted
// state. Keys that address no step or no settable parameter are rejected.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		stepName, paramName, found := strings.Cut(key, "__")
		if !found {
			return errors.NewValidationError(key,
				"pipeline parameters must use the step__param convention", value)
		}
		estimator, ok := p.namedSteps[stepName]
		if !ok {
			return errors.NewValidationError(key,
				fmt.Sprintf("no pipeline step named '%s'", stepName), value)
		}
		setter, ok := estimator.(interface {
			SetParams(map[string]interface{}) error
		})
		if !ok {
			return errors.NewValidationError(key,
				fmt.Sprintf("step '%s' does not accept parameters", stepName), value)
		}
		if err := setter.SetParams(map[string]interface{}{paramName: value}); err != nil {
			return err
		}
	}
	p.Reset()
	return nil
}

// NamedSteps returns the steps keyed by name.
func (p *Pipeline) NamedSteps() map[string]interface{} {
	return p.namedSteps
}

// Steps returns a copy of the ordered step list.
func (p *Pipeline) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return steps
}

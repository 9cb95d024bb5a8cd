package pipeline

import (
	"encoding/json"
	"io"

	"github.com/itu-sdse/housing-estimator/linear"
	"github.com/itu-sdse/housing-estimator/preprocessing"
)

// Step names of the housing-price estimation pipeline.
const (
	StepStandardScaler = "standard_scaler"
	StepLasso          = "lasso"
)

// NewHousingPipeline builds the two-stage housing-price model: feature
// standardization followed by a Lasso regressor. Pure construction; nothing
// is fitted until Fit is called.
func NewHousingPipeline() *Pipeline {
	return New(
		Step{Name: StepStandardScaler, Estimator: preprocessing.NewStandardScalerDefault()},
		Step{Name: StepLasso, Estimator: linear.NewLasso()},
	)
}

// exportedStep is the serialized form of one pipeline stage.
type exportedStep struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
	State  map[string]interface{} `json:"state,omitempty"`
}

// Save writes the pipeline, including fitted state, as a JSON artifact.
// Steps expose their fitted state through the optional ExportState method.
func (p *Pipeline) Save(w io.Writer) error {
	steps := make([]exportedStep, 0, len(p.steps))
	for _, step := range p.steps {
		exported := exportedStep{
			Name: step.Name,
			Type: typeName(step.Estimator),
		}
		if getter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		}); ok {
			exported.Params = getter.GetParams()
		}
		if exporter, ok := step.Estimator.(interface {
			ExportState() map[string]interface{}
		}); ok {
			exported.State = exporter.ExportState()
		}
		steps = append(steps, exported)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"format": "housing-estimator/pipeline",
		"fitted": p.IsFitted(),
		"steps":  steps,
	})
}

func typeName(estimator interface{}) string {
	type namer interface{ String() string }
	if n, ok := estimator.(namer); ok {
		return n.String()
	}
	return "unknown"
}

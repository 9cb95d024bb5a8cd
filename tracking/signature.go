package tracking

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ColSpec describes one column of a model signature.
type ColSpec struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// Signature is the inferred input/output schema of a model, registered with
// the model artifact so consumers can validate their inputs.
type Signature struct {
	Inputs  []ColSpec `json:"inputs"`
	Outputs []ColSpec `json:"outputs"`
}

// InferSignature derives a signature from a feature matrix and the model's
// predictions on it. Column names are taken from featureNames when provided;
// positional names are generated otherwise.
func InferSignature(featureNames []string, X mat.Matrix, predictions mat.Matrix) Signature {
	_, nFeatures := X.Dims()
	_, nOutputs := predictions.Dims()

	inputs := make([]ColSpec, nFeatures)
	for j := 0; j < nFeatures; j++ {
		name := fmt.Sprintf("feature_%d", j)
		if j < len(featureNames) {
			name = featureNames[j]
		}
		inputs[j] = ColSpec{Name: name, Type: "double"}
	}

	outputs := make([]ColSpec, nOutputs)
	for j := 0; j < nOutputs; j++ {
		outputs[j] = ColSpec{Type: "double"}
	}

	return Signature{Inputs: inputs, Outputs: outputs}
}

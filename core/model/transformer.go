package model

import "gonum.org/v1/gonum/mat"

// Transformer is the interface for stateful data transformations.
// Parameters are learned from the data passed to Fit and applied to any data
// passed to Transform.
type Transformer interface {
	// Fit learns the transformation parameters from X.
	Fit(X mat.Matrix) error

	// Transform applies the learned transformation to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform fits on X and transforms the same data.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

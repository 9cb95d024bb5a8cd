package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/dataset"
	"github.com/itu-sdse/housing-estimator/modelselection"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// TargetColumn is the label column of the housing dataset.
const TargetColumn = "price"

// FeatureColumns is the canonical feature schema, in positional order. The
// source columns are renamed to these names by position, so the column order
// of the housing_prices relation is significant.
var FeatureColumns = []string{
	"square_feet",
	"num_bedrooms",
	"num_bathrooms",
	"num_floors",
	"year_built",
	"has_garden",
	"has_pool",
	"garage_size",
	"location_score",
	"distance_to_center",
}

// Split parameters. The fixed seed makes the partition reproducible across
// runs on the same input.
const (
	TestSize  = 0.2
	SplitSeed = 3
)

// Split separates the dataset into a feature matrix and target vector,
// renames the feature columns to the canonical schema, and partitions the
// rows into train and test subsets.
//
// A missing target column or a feature-count mismatch is a SchemaError. The
// rename is positional; a count mismatch is the only mislabeling the split
// can detect, so the count check fails loudly instead of silently
// mislabeling the features.
func Split(ds *dataset.Dataset) (XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error) {
	if !ds.HasColumn(TargetColumn) {
		return nil, nil, nil, nil, errors.NewSchemaError("preprocessing.Split", TargetColumn,
			"target column not found in dataset")
	}

	features, err := ds.Drop(TargetColumn)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := features.SetColumnNames(FeatureColumns); err != nil {
		return nil, nil, nil, nil, err
	}

	y, err := ds.Column(TargetColumn)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return modelselection.TrainTestSplit(features.Matrix(), y, TestSize, SplitSeed)
}

// Package modelselection provides dataset partitioning and hyperparameter
// search: the train/test split, k-fold cross-validation, and grid search.
package modelselection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// TrainTestSplit partitions (X, y) into disjoint train and test subsets.
// testSize is the fraction of rows assigned to the test subset; the test row
// count is testSize*n rounded to the nearest integer. The same seed always
// produces the same partition, and X and y rows stay aligned throughout.
func TrainTestSplit(X *mat.Dense, y *mat.VecDense, testSize float64, seed int) (XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error) {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return nil, nil, nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Round(testSize * float64(n)))
	if nTest == 0 || nTest == n {
		return nil, nil, nil, nil, errors.NewValidationError("test_size",
			"produces an empty partition for this dataset size", testSize)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testIdx := indices[:nTest]
	trainIdx := indices[nTest:]

	XTrain, yTrain = takeRows(X, y, trainIdx)
	XTest, yTest = takeRows(X, y, testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}

// takeRows copies the selected rows of X and y, preserving their alignment.
func takeRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, c := X.Dims()
	outX := mat.NewDense(len(indices), c, nil)
	outY := mat.NewVecDense(len(indices), nil)

	for i, idx := range indices {
		for j := 0; j < c; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.SetVec(i, y.AtVec(idx))
	}
	return outX, outY
}

package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/dataset"
	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// housingFixture builds a dataset with the raw source schema: ten feature
// columns plus the price target. The price encodes the row index so alignment
// survives any shuffle.
func housingFixture(t *testing.T, n int) *dataset.Dataset {
	t.Helper()

	columns := []string{
		"sqft", "beds", "baths", "floors", "built",
		"garden", "pool", "garage", "loc", "dist",
		TargetColumn,
	}
	data := mat.NewDense(n, len(columns), nil)
	for i := 0; i < n; i++ {
		for j := 0; j < len(columns)-1; j++ {
			data.Set(i, j, float64(i*len(columns)+j))
		}
		data.Set(i, len(columns)-1, float64(i))
	}

	ds, err := dataset.New(columns, nil, data)
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	return ds
}

func TestSplit(t *testing.T) {
	ds := housingFixture(t, 100)

	XTrain, XTest, yTrain, yTest, err := Split(ds)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	trainRows, trainCols := XTrain.Dims()
	testRows, testCols := XTest.Dims()
	if trainCols != len(FeatureColumns) || testCols != len(FeatureColumns) {
		t.Errorf("feature widths = (%d, %d), want %d", trainCols, testCols, len(FeatureColumns))
	}
	if testRows != 20 || trainRows != 80 {
		t.Errorf("partition sizes = (%d, %d), want (80, 20)", trainRows, testRows)
	}
	if yTrain.Len() != trainRows || yTest.Len() != testRows {
		t.Errorf("target lengths = (%d, %d), want (%d, %d)",
			yTrain.Len(), yTest.Len(), trainRows, testRows)
	}
}

// The price column encodes the original row index, and so does the first
// feature column (scaled by the source width). Both partitions must agree.
func TestSplitAlignment(t *testing.T) {
	ds := housingFixture(t, 60)
	width := ds.NumColumns()

	XTrain, XTest, yTrain, yTest, err := Split(ds)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	check := func(name string, X *mat.Dense, y *mat.VecDense) {
		rows, _ := X.Dims()
		for i := 0; i < rows; i++ {
			origRow := X.At(i, 0) / float64(width)
			if math.Abs(y.AtVec(i)-origRow) > 1e-12 {
				t.Errorf("%s row %d: y = %v, want %v", name, i, y.AtVec(i), origRow)
			}
		}
	}
	check("train", XTrain, yTrain)
	check("test", XTest, yTest)
}

func TestSplitDeterministic(t *testing.T) {
	first := housingFixture(t, 50)
	second := housingFixture(t, 50)

	_, XTest1, _, _, err := Split(first)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	_, XTest2, _, _, err := Split(second)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !mat.Equal(XTest1, XTest2) {
		t.Error("identical input produced different partitions")
	}
}

func TestSplitMissingTarget(t *testing.T) {
	columns := append([]string{}, FeatureColumns...)
	data := mat.NewDense(10, len(columns), nil)
	ds, err := dataset.New(columns, nil, data)
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	_, _, _, _, err = Split(ds)
	if err == nil {
		t.Fatal("Split() without target expected error, got nil")
	}
	var schemaErr *errors.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("error = %T, want *SchemaError", err)
	}
}

func TestSplitWrongFeatureCount(t *testing.T) {
	columns := []string{"a", "b", "c", TargetColumn}
	data := mat.NewDense(10, len(columns), nil)
	ds, err := dataset.New(columns, nil, data)
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	_, _, _, _, err = Split(ds)
	if err == nil {
		t.Fatal("Split() with wrong feature count expected error, got nil")
	}
	var schemaErr *errors.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("error = %T, want *SchemaError", err)
	}
}

func TestSplitLeavesSourceIntact(t *testing.T) {
	ds := housingFixture(t, 30)
	before := ds.Columns()

	if _, _, _, _, err := Split(ds); err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	after := ds.Columns()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("column %d renamed from %q to %q", i, before[i], after[i])
		}
	}
	if !ds.HasColumn(TargetColumn) {
		t.Error("target column removed from the source dataset")
	}
}

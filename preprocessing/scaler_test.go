package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

func TestStandardScalerFitTransform(t *testing.T) {
	tests := []struct {
		name      string
		data      []float64
		rows      int
		cols      int
		wantMean  []float64
		wantScale []float64
	}{
		{
			name: "two features",
			data: []float64{
				1, 10,
				2, 20,
				3, 30,
				4, 40,
			},
			rows:      4,
			cols:      2,
			wantMean:  []float64{2.5, 25},
			wantScale: []float64{math.Sqrt(1.25), math.Sqrt(125)},
		},
		{
			name: "constant column falls back to unit scale",
			data: []float64{
				5, 1,
				5, 2,
				5, 3,
			},
			rows:      3,
			cols:      2,
			wantMean:  []float64{5, 2},
			wantScale: []float64{1, math.Sqrt(2.0 / 3.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X := mat.NewDense(tt.rows, tt.cols, tt.data)
			scaler := NewStandardScalerDefault()

			Xt, err := scaler.FitTransform(X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}

			const tol = 1e-9
			for j := 0; j < tt.cols; j++ {
				if math.Abs(scaler.Mean[j]-tt.wantMean[j]) > tol {
					t.Errorf("Mean[%d] = %v, want %v", j, scaler.Mean[j], tt.wantMean[j])
				}
				if math.Abs(scaler.Scale[j]-tt.wantScale[j]) > tol {
					t.Errorf("Scale[%d] = %v, want %v", j, scaler.Scale[j], tt.wantScale[j])
				}

				sum := 0.0
				for i := 0; i < tt.rows; i++ {
					sum += Xt.At(i, j)
				}
				if mean := sum / float64(tt.rows); math.Abs(mean) > tol {
					t.Errorf("transformed column %d mean = %v, want 0", j, mean)
				}
			}
		})
	}
}

func TestStandardScalerTransformUnitVariance(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{2, 4, 6, 8, 10})
	scaler := NewStandardScalerDefault()

	Xt, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	sumSq := 0.0
	for i := 0; i < 5; i++ {
		v := Xt.At(i, 0)
		sumSq += v * v
	}
	if variance := sumSq / 5; math.Abs(variance-1.0) > 1e-9 {
		t.Errorf("transformed variance = %v, want 1.0", variance)
	}
}

func TestStandardScalerInverseTransformRoundTrip(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		100, 0.5,
		200, 1.5,
		300, 2.5,
		400, 3.5,
	})
	scaler := NewStandardScalerDefault()

	Xt, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	Xr, err := scaler.InverseTransform(Xt)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}

	if !mat.EqualApprox(X, Xr, 1e-9) {
		t.Error("InverseTransform(Transform(X)) != X")
	}
}

func TestStandardScalerWithoutCentering(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	scaler := NewStandardScaler(false, true)

	if _, err := scaler.FitTransform(X); err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if scaler.Mean[0] != 0 {
		t.Errorf("Mean[0] = %v, want 0 when centering is disabled", scaler.Mean[0])
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScalerDefault()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := scaler.Transform(X)
	if err == nil {
		t.Fatal("Transform() before Fit expected error, got nil")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("error = %T, want *NotFittedError", err)
	}
}

func TestStandardScalerTransformDimensionMismatch(t *testing.T) {
	scaler := NewStandardScalerDefault()
	if err := scaler.Fit(mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	_, err := scaler.Transform(mat.NewDense(3, 4, nil))
	if err == nil {
		t.Fatal("Transform() with wrong width expected error, got nil")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("error = %T, want *DimensionError", err)
	}
}

func TestStandardScalerSetParams(t *testing.T) {
	scaler := NewStandardScalerDefault()

	if err := scaler.SetParams(map[string]interface{}{"with_mean": false}); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if scaler.WithMean {
		t.Error("WithMean = true, want false")
	}

	if err := scaler.SetParams(map[string]interface{}{"with_mean": 1.0}); err == nil {
		t.Error("SetParams() with non-bool expected error, got nil")
	}
	if err := scaler.SetParams(map[string]interface{}{"gamma": true}); err == nil {
		t.Error("SetParams() with unknown key expected error, got nil")
	}
}

package modelselection

import (
	"sort"
	"testing"
)

func TestKFoldSplit(t *testing.T) {
	tests := []struct {
		name     string
		nSplits  int
		nSamples int
	}{
		{name: "even split", nSplits: 3, nSamples: 99},
		{name: "with remainder", nSplits: 3, nSamples: 100},
		{name: "five folds", nSplits: 5, nSamples: 47},
		{name: "minimum folds", nSplits: 2, nSamples: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kf, err := NewKFold(tt.nSplits, false, 0)
			if err != nil {
				t.Fatalf("NewKFold() error = %v", err)
			}
			folds := kf.Split(tt.nSamples)

			if len(folds) != tt.nSplits {
				t.Fatalf("len(folds) = %d, want %d", len(folds), tt.nSplits)
			}

			// Every sample appears in exactly one test fold.
			seen := make([]int, tt.nSamples)
			for _, fold := range folds {
				if len(fold.TrainIndices)+len(fold.TestIndices) != tt.nSamples {
					t.Errorf("fold covers %d indices, want %d",
						len(fold.TrainIndices)+len(fold.TestIndices), tt.nSamples)
				}
				for _, idx := range fold.TestIndices {
					seen[idx]++
				}
			}
			for idx, count := range seen {
				if count != 1 {
					t.Errorf("sample %d appears in %d test folds, want 1", idx, count)
				}
			}

			// Fold sizes differ by at most one.
			sizes := make([]int, len(folds))
			for i, fold := range folds {
				sizes[i] = len(fold.TestIndices)
			}
			sort.Ints(sizes)
			if sizes[len(sizes)-1]-sizes[0] > 1 {
				t.Errorf("fold sizes %v differ by more than one", sizes)
			}
		})
	}
}

func TestKFoldDisjointTrainTest(t *testing.T) {
	kf, err := NewKFold(3, true, 7)
	if err != nil {
		t.Fatalf("NewKFold() error = %v", err)
	}
	for _, fold := range kf.Split(30) {
		inTest := make(map[int]bool, len(fold.TestIndices))
		for _, idx := range fold.TestIndices {
			inTest[idx] = true
		}
		for _, idx := range fold.TrainIndices {
			if inTest[idx] {
				t.Fatalf("index %d in both train and test", idx)
			}
		}
	}
}

func TestKFoldShuffleDeterministic(t *testing.T) {
	kf1, err := NewKFold(3, true, 42)
	if err != nil {
		t.Fatalf("NewKFold() error = %v", err)
	}
	kf2, err := NewKFold(3, true, 42)
	if err != nil {
		t.Fatalf("NewKFold() error = %v", err)
	}
	first := kf1.Split(20)
	second := kf2.Split(20)

	for i := range first {
		if len(first[i].TestIndices) != len(second[i].TestIndices) {
			t.Fatalf("fold %d sizes differ", i)
		}
		for j := range first[i].TestIndices {
			if first[i].TestIndices[j] != second[i].TestIndices[j] {
				t.Fatalf("fold %d diverges at position %d", i, j)
			}
		}
	}
}

func TestNewKFoldRejectsLowSplits(t *testing.T) {
	for _, nSplits := range []int{1, 0, -3} {
		if _, err := NewKFold(nSplits, false, 0); err == nil {
			t.Errorf("NewKFold(%d) expected error, got nil", nSplits)
		}
	}
}

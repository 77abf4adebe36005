package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// TestPassiveAggressiveClassifier_Binary tests binary classification
func TestPassiveAggressiveClassifier_Binary(t *testing.T) {
	X, y := separableData()

	pa := NewPassiveAggressiveClassifier(WithPARandomState(42), WithPAMaxIter(100))
	if err := pa.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	predictions, err := pa.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), predictions.At(i, 0))
		}
	}

	proba, err := pa.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
		if (proba.At(i, 1) > 0.5) != (predictions.At(i, 0) == 1) {
			t.Errorf("Sample %d: probability %v disagrees with prediction %v", i, proba.At(i, 1), predictions.At(i, 0))
		}
	}

	if len(pa.Classes()) != 2 {
		t.Errorf("Expected 2 classes, got %v", pa.Classes())
	}
}

// TestPassiveAggressiveClassifier_Multiclass tests one-vs-rest training
func TestPassiveAggressiveClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(6, 3, []float64{
		3, 0, 0,
		2, 0, 0,
		0, 3, 0,
		0, 2, 0,
		0, 0, 3,
		0, 0, 2,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 2, 2})

	pa := NewPassiveAggressiveClassifier(WithPARandomState(1), WithPAMaxIter(100), WithPALoss("squared_hinge"))
	if err := pa.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	predictions, err := pa.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), predictions.At(i, 0))
		}
	}

	w, err := pa.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Coefficients) != 3 {
		t.Errorf("Expected one weight row per class, got %d", len(w.Coefficients))
	}
}

// TestPassiveAggressiveClassifier_PartialFit tests incremental learning
func TestPassiveAggressiveClassifier_PartialFit(t *testing.T) {
	X, y := separableData()
	pa := NewPassiveAggressiveClassifier()

	first := mat.NewDense(4, 3, nil)
	first.Copy(X.Slice(0, 4, 0, 3))
	yFirst := mat.NewDense(4, 1, []float64{0, 0, 0, 0})
	if err := pa.PartialFit(first, yFirst, []int{0, 1}); err != nil {
		t.Fatalf("first PartialFit failed: %v", err)
	}
	for epoch := 0; epoch < 10; epoch++ {
		if err := pa.PartialFit(X, y, nil); err != nil {
			t.Fatalf("PartialFit failed: %v", err)
		}
	}

	if _, err := pa.Predict(X); err != nil {
		t.Errorf("Predict after PartialFit failed: %v", err)
	}

	bad := mat.NewDense(1, 3, []float64{1, 1, 1})
	if err := pa.PartialFit(bad, mat.NewDense(1, 1, []float64{5}), nil); err == nil {
		t.Error("expected an error for an unknown label")
	}
	if err := pa.PartialFit(mat.NewDense(1, 2, []float64{1, 1}), mat.NewDense(1, 1, []float64{0}), nil); err == nil {
		t.Error("expected a dimension error")
	}
}

// TestPassiveAggressiveClassifier_Errors tests validation errors
func TestPassiveAggressiveClassifier_Errors(t *testing.T) {
	X, y := separableData()

	_, err := NewPassiveAggressiveClassifier().Predict(X)
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	single := mat.NewDense(8, 1, nil)
	if err := NewPassiveAggressiveClassifier().Fit(X, single); !errors.Is(err, errors.ErrSingleClass) {
		t.Errorf("expected ErrSingleClass, got %v", err)
	}

	if err := NewPassiveAggressiveClassifier(WithPALoss("log")).Fit(X, y); err == nil {
		t.Error("expected a validation error for an unknown loss")
	}

	pa := NewPassiveAggressiveClassifier(WithPARandomState(0))
	if err := pa.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err = pa.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

// TestPassiveAggressiveClassifier_Tol tests the epoch-loss stopping rule
func TestPassiveAggressiveClassifier_Tol(t *testing.T) {
	X, y := separableData()
	errors.SetWarningHandler(func(error) {})

	tests := []struct {
		name      string
		tol       float64
		maxIter   int
		wantEpoch int
	}{
		{"loose tolerance stops after the second epoch", 1e9, 50, 2},
		{"zero tolerance runs every epoch", 0, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pa := NewPassiveAggressiveClassifier(WithPATol(tt.tol), WithPAMaxIter(tt.maxIter), WithPARandomState(0))
			if err := pa.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			if got := pa.NIterations(); got != tt.wantEpoch {
				t.Errorf("NIterations() = %d, want %d", got, tt.wantEpoch)
			}
		})
	}
}

// TestPassiveAggressiveClassifier_NoShuffle tests that a fixed sample order
// makes the seed irrelevant
func TestPassiveAggressiveClassifier_NoShuffle(t *testing.T) {
	X, y := separableData()

	fit := func(seed int64) [][]float64 {
		pa := NewPassiveAggressiveClassifier(WithPAShuffle(false), WithPARandomState(seed), WithPAMaxIter(10))
		if err := pa.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		w, err := pa.ExportWeights()
		if err != nil {
			t.Fatal(err)
		}
		return w.Coefficients
	}

	a, b := fit(1), fit(2)
	for j := range a[0] {
		if a[0][j] != b[0][j] {
			t.Errorf("coefficient %d differs between seeds: %v vs %v", j, a[0][j], b[0][j])
		}
	}
}

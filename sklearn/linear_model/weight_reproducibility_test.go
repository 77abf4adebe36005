package linear_model

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

func separableData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 3, []float64{
		1, 0, 0,
		2, 0, 1,
		1, 1, 0,
		3, 0, 0,
		0, 2, 3,
		0, 1, 2,
		0, 3, 1,
		1, 2, 3,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

// roundTrip は重みを JSON 経由で別のモデルに移し、予測確率の一致を確認する
func roundTrip(t *testing.T, src, dst model.PersistableClassifier, X mat.Matrix) {
	t.Helper()

	weights, err := src.ExportWeights()
	if err != nil {
		t.Fatalf("Failed to export weights: %v", err)
	}

	jsonData, err := json.Marshal(weights)
	if err != nil {
		t.Fatalf("Failed to serialize weights: %v", err)
	}
	loaded := &model.ModelWeights{}
	if err := json.Unmarshal(jsonData, loaded); err != nil {
		t.Fatalf("Failed to deserialize weights: %v", err)
	}

	if err := dst.ImportWeights(loaded); err != nil {
		t.Fatalf("Failed to import weights: %v", err)
	}

	p1, err := src.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict with source model: %v", err)
	}
	p2, err := dst.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict with restored model: %v", err)
	}

	rows, cols := p1.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if p1.At(i, j) != p2.At(i, j) {
				t.Errorf("Probability mismatch at (%d, %d): %.17f vs %.17f", i, j, p1.At(i, j), p2.At(i, j))
			}
		}
	}
}

// TestLogisticRegressionWeightReproducibility は重みの完全な再現性をテスト
func TestLogisticRegressionWeightReproducibility(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(42), WithLRMaxIter(300))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	roundTrip(t, lr, NewLogisticRegression(), X)
}

// TestPassiveAggressiveWeightReproducibility は平均化PAの重みの再現性をテスト
func TestPassiveAggressiveWeightReproducibility(t *testing.T) {
	X, y := separableData()
	pa := NewPassiveAggressiveClassifier(WithPARandomState(7), WithPAAverage(true), WithPAMaxIter(50))
	if err := pa.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	roundTrip(t, pa, NewPassiveAggressiveClassifier(), X)
}

// TestSeededFitIsDeterministic は同じシードで同じ重みになることをテスト
func TestSeededFitIsDeterministic(t *testing.T) {
	X, y := separableData()

	fit := func() *model.ModelWeights {
		pa := NewPassiveAggressiveClassifier(WithPARandomState(3), WithPAMaxIter(20))
		if err := pa.Fit(X, y); err != nil {
			t.Fatalf("Failed to fit: %v", err)
		}
		w, err := pa.ExportWeights()
		if err != nil {
			t.Fatal(err)
		}
		return w
	}

	w1, w2 := fit(), fit()
	for j := range w1.Coefficients[0] {
		if w1.Coefficients[0][j] != w2.Coefficients[0][j] {
			t.Errorf("coefficient %d differs: %v vs %v", j, w1.Coefficients[0][j], w2.Coefficients[0][j])
		}
	}
}

// TestImportWeightsRejectsMismatch は別モデルの重みを拒否することをテスト
func TestImportWeightsRejectsMismatch(t *testing.T) {
	X, y := separableData()
	pa := NewPassiveAggressiveClassifier(WithPARandomState(1))
	if err := pa.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	w, _ := pa.ExportWeights()

	err := NewLogisticRegression().ImportWeights(w)
	var modelErr *errors.ModelError
	if !errors.As(err, &modelErr) {
		t.Errorf("expected ModelError, got %v", err)
	}

	w.IsFitted = false
	if err := NewPassiveAggressiveClassifier().ImportWeights(w); err == nil {
		t.Error("expected an error for unfitted weights")
	}
}

// TestNonFiniteInputIsNumericalInstability は発散した係数をエラーにすることをテスト
func TestNonFiniteInputIsNumericalInstability(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		math.Inf(1), 0,
		1, 0,
		0, 1,
		0, 2,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	errors.SetWarningHandler(func(error) {})
	err := NewLogisticRegression(WithLRMaxIter(5)).Fit(X, y)
	var numErr *errors.NumericalInstabilityError
	if !errors.As(err, &numErr) {
		t.Errorf("expected NumericalInstabilityError, got %v", err)
	}
}

// BenchmarkWeightExportImport は重みのエクスポート/インポートのパフォーマンスを測定
func BenchmarkWeightExportImport(b *testing.B) {
	X := mat.NewDense(200, 100, nil)
	y := mat.NewDense(200, 1, nil)
	for i := 0; i < 200; i++ {
		for j := 0; j < 100; j++ {
			X.Set(i, j, float64((i+j)%7)/7.0)
		}
		y.Set(i, 0, float64(i%2))
	}

	mdl := NewLogisticRegression(WithLRMaxIter(20))
	_ = mdl.Fit(X, y)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		weights, _ := mdl.ExportWeights()
		newModel := NewLogisticRegression()
		_ = newModel.ImportWeights(weights)
	}
}

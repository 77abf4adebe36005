package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "Worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "Random classifier",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "All positive labels",
			yTrue: []float64{1, 1, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:  "All negative labels",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := AUC(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUC() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   mat.Matrix
		yPred   mat.Matrix
		want    float64
		wantErr bool
	}{
		{
			name:  "Matrix input",
			yTrue: mat.NewDense(4, 1, []float64{0, 0, 1, 1}),
			yPred: mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8}),
			want:  0.75,
		},
		{
			name:  "Multi-column matrix (uses first column)",
			yTrue: mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
			yPred: mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
			want:  0.75,
		},
		{
			name:    "Nil matrix",
			yTrue:   nil,
			yPred:   mat.NewDense(1, 1, []float64{0.5}),
			wantErr: true,
		},
		{
			name:    "Empty matrix",
			yTrue:   &mat.Dense{},
			yPred:   &mat.Dense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCMatrix(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUCMatrix() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUCMatrix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 0, 1, 1},
			want:  0.0, // Will be small epsilon value due to clipping
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.2, 0.8, 0.9},
			want:  0.164252, // Approximate expected value
		},
		{
			name:  "Worst predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.9, 0.9, 0.1, 0.1},
			want:  2.3025851, // Approximate expected value
		},
		{
			name:  "Clipping edge case",
			yTrue: []float64{0, 1},
			yPred: []float64{0, 1}, // Will be clipped to avoid log(0)
			want:  0.0,             // Small value due to epsilon
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := BinaryLogLoss(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("BinaryLogLoss() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("BinaryLogLoss() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassificationError(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classification",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  0.0,
		},
		{
			name:  "One error",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.2,
		},
		{
			name:  "All wrong",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  1.0,
		},
		{
			name:  "Binary classification",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 1, 1, 0},
			want:  0.5,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := ClassificationError(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("ClassificationError() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ClassificationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := Accuracy(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAveragePrecision(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yScore  []float64
		want    float64
		wantErr bool
	}{
		{
			name:   "Perfect ranking",
			yTrue:  []float64{0, 0, 1, 1},
			yScore: []float64{0.1, 0.2, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "Typical case",
			yTrue:  []float64{0, 0, 1, 1},
			yScore: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.833333,
		},
		{
			name:   "Tied scores form one threshold",
			yTrue:  []float64{1, 0},
			yScore: []float64{0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "No positives",
			yTrue:  []float64{0, 0},
			yScore: []float64{0.5, 0.7},
			want:   0.0,
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 2},
			yScore:  []float64{0.5, 0.7},
			wantErr: true,
		},
	}

	errors.SetWarningHandler(func(error) {})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AveragePrecision(mat.NewVecDense(len(tt.yTrue), tt.yTrue), mat.NewVecDense(len(tt.yScore), tt.yScore))
			if (err != nil) != tt.wantErr {
				t.Errorf("AveragePrecision() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AveragePrecision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinaryConfusion(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	yPred := mat.NewVecDense(6, []float64{1, 1, 0, 1, 0, 0})

	cm, err := NewBinaryConfusion(yTrue, yPred)
	if err != nil {
		t.Fatalf("NewBinaryConfusion() error = %v", err)
	}
	if cm != (BinaryConfusion{TP: 2, FP: 1, TN: 2, FN: 1}) {
		t.Fatalf("unexpected confusion %+v", cm)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"PositivePrecision", cm.PositivePrecision(), 2.0 / 3},
		{"PositiveRecall", cm.PositiveRecall(), 2.0 / 3},
		{"NegativePrecision", cm.NegativePrecision(), 2.0 / 3},
		{"NegativeRecall", cm.NegativeRecall(), 2.0 / 3},
		{"F1", cm.F1(), 2.0 / 3},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestF1ScoreUndefinedWarns(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	got, err := F1Score(mat.NewVecDense(3, []float64{0, 0, 0}), mat.NewVecDense(3, []float64{0, 0, 0}))
	if err != nil {
		t.Fatalf("F1Score() error = %v", err)
	}
	if got != 0 {
		t.Errorf("F1Score() = %v, want 0", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	var undefined *errors.UndefinedMetricWarning
	if !errors.As(warnings[0], &undefined) || undefined.Metric != "f1_score" {
		t.Errorf("unexpected warning %v", warnings[0])
	}
}

func TestF1Score(t *testing.T) {
	got, err := F1Score(mat.NewVecDense(4, []float64{0, 0, 1, 1}), mat.NewVecDense(4, []float64{0, 1, 1, 0}))
	if err != nil {
		t.Fatalf("F1Score() error = %v", err)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("F1Score() = %v, want 0.5", got)
	}
}

func TestMacroAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"Majority-only predictor", []float64{0, 0, 0, 1}, []float64{0, 0, 0, 0}, 0.5},
		{"Three classes", []float64{0, 1, 2, 2}, []float64{0, 1, 2, 0}, (1 + 1 + 0.5) / 3.0},
		{"Perfect", []float64{1, 0}, []float64{1, 0}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MacroAccuracy(mat.NewVecDense(len(tt.yTrue), tt.yTrue), mat.NewVecDense(len(tt.yPred), tt.yPred))
			if err != nil {
				t.Fatalf("MacroAccuracy() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MacroAccuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMulticlassLogLoss(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{0, 1})
	proba := mat.NewDense(2, 2, []float64{0.8, 0.2, 0.3, 0.7})

	got, err := MulticlassLogLoss(yTrue, proba, []int{0, 1})
	if err != nil {
		t.Fatalf("MulticlassLogLoss() error = %v", err)
	}
	want := -(math.Log(0.8) + math.Log(0.7)) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("MulticlassLogLoss() = %v, want %v", got, want)
	}

	if _, err := MulticlassLogLoss(yTrue, proba, []int{0, 1, 2}); err == nil {
		t.Error("expected a dimension error for a class count mismatch")
	}
	if _, err := MulticlassLogLoss(mat.NewVecDense(2, []float64{0, 5}), proba, []int{0, 1}); err == nil {
		t.Error("expected an error for an unknown label")
	}
}

// Benchmark tests
func BenchmarkAUC(b *testing.B) {
	// Create test data
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < n/2 {
			yTrue[i] = 0
			yPred[i] = float64(i) / float64(n)
		} else {
			yTrue[i] = 1
			yPred[i] = float64(i) / float64(n)
		}
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrueVec, yPredVec)
	}
}

func BenchmarkBinaryLogLoss(b *testing.B) {
	// Create test data
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < n/2 {
			yTrue[i] = 0
			yPred[i] = 0.1 + 0.3*float64(i)/float64(n)
		} else {
			yTrue[i] = 1
			yPred[i] = 0.6 + 0.3*float64(i-n/2)/float64(n/2)
		}
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BinaryLogLoss(yTrueVec, yPredVec)
	}
}

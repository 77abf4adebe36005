// Package automl searches over text classification pipelines under a time
// budget, evaluates the resulting models and persists them.
//
// A pipeline is a TextVectorizer followed by one of the trainers in
// sklearn/naive_bayes or sklearn/linear_model. Search reports every finished
// trial to a ProgressSink, one call at a time, in completion order.
package automl

import (
	"math"
	"strings"
	"time"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// Task identifies which metrics variant a Metrics value carries.
type Task int

const (
	TaskBinary Task = iota
	TaskMulticlass
	TaskRegression
	TaskRanking
)

func (t Task) String() string {
	switch t {
	case TaskBinary:
		return "binary"
	case TaskMulticlass:
		return "multiclass"
	case TaskRegression:
		return "regression"
	case TaskRanking:
		return "ranking"
	}
	return "unknown"
}

// BinaryMetrics are computed for a model whose label is a boolean.
type BinaryMetrics struct {
	Accuracy          float64
	AUC               float64
	AUPRC             float64
	F1                float64
	PositivePrecision float64
	PositiveRecall    float64
	NegativePrecision float64
	NegativeRecall    float64
	LogLoss           float64
}

// MulticlassMetrics are computed for integer class labels.
type MulticlassMetrics struct {
	MicroAccuracy float64
	MacroAccuracy float64
	LogLoss       float64
}

// RegressionMetrics are computed for real-valued targets.
type RegressionMetrics struct {
	RSquared float64
	MAE      float64
	MSE      float64
	RMSE     float64
}

// RankingMetrics hold NDCG and DCG keyed by truncation level.
type RankingMetrics struct {
	NDCG map[int]float64
	DCG  map[int]float64
}

// RankingTruncations are the levels EvaluateRanking reports.
var RankingTruncations = []int{1, 3, 10}

// Metrics is a tagged variant. Exactly the field named by Task is set.
type Metrics struct {
	Task       Task
	Binary     *BinaryMetrics
	Multiclass *MulticlassMetrics
	Regression *RegressionMetrics
	Ranking    *RankingMetrics
}

// Binary wraps b in a Metrics value.
func Binary(b BinaryMetrics) Metrics {
	return Metrics{Task: TaskBinary, Binary: &b}
}

// Multiclass wraps m in a Metrics value.
func Multiclass(m MulticlassMetrics) Metrics {
	return Metrics{Task: TaskMulticlass, Multiclass: &m}
}

// Regression wraps r in a Metrics value.
func Regression(r RegressionMetrics) Metrics {
	return Metrics{Task: TaskRegression, Regression: &r}
}

// Ranking wraps r in a Metrics value.
func Ranking(r RankingMetrics) Metrics {
	return Metrics{Task: TaskRanking, Ranking: &r}
}

// Accuracy returns the validation accuracy used to rank trials: binary
// accuracy or multiclass micro accuracy. It is NaN when the variant has no
// accuracy or is unset.
func (m Metrics) Accuracy() float64 {
	switch m.Task {
	case TaskBinary:
		if m.Binary != nil {
			return m.Binary.Accuracy
		}
	case TaskMulticlass:
		if m.Multiclass != nil {
			return m.Multiclass.MicroAccuracy
		}
	}
	return math.NaN()
}

// TrialResult is the outcome of one candidate pipeline.
type TrialResult struct {
	// Index is 1-based and follows completion order.
	Index      int
	Trainer    string
	Featurizer string
	Params     map[string]float64
	Metrics    Metrics
	Elapsed    time.Duration
	// Err is a TrialFailure when the trial did not produce a model.
	Err   error
	Model *Model
}

// Failed reports whether the trial carries a failure cause.
func (r TrialResult) Failed() bool {
	return r.Err != nil
}

// Cause returns the innermost error of a failed trial, or nil.
func (r TrialResult) Cause() error {
	if r.Err == nil {
		return nil
	}
	var tf *errors.TrialFailure
	if errors.As(r.Err, &tf) && tf.Err != nil {
		return tf.Err
	}
	return r.Err
}

// ColumnType is the declared type of a schema column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnBool   ColumnType = "bool"
)

// Column is one input column of a Schema.
type Column struct {
	Name string
	Type ColumnType
}

// Schema lists the input columns a model was trained against.
type Schema struct {
	Columns []Column
}

// SentimentSchema is text:string, label:bool.
func SentimentSchema() Schema {
	return Schema{Columns: []Column{
		{Name: "text", Type: ColumnString},
		{Name: "label", Type: ColumnBool},
	}}
}

// Equal reports whether both schemas have the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Columns) != len(o.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + ":" + string(c.Type)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Prediction is the output of inference on one sample.
type Prediction struct {
	Label bool
	// Probability of the positive label.
	Probability float64
	// Score is the log-odds of Probability.
	Score float64
}

// ProgressSink receives every finished trial. Calls never overlap.
type ProgressSink interface {
	OnTrialComplete(index int, r TrialResult)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(index int, r TrialResult)

// OnTrialComplete calls f.
func (f ProgressFunc) OnTrialComplete(index int, r TrialResult) {
	f(index, r)
}

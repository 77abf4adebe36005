package report

import (
	"fmt"

	"github.com/YuminosukeSato/sentiml/automl"
)

// TrialRecorder receives every trial the progress handler reports.
type TrialRecorder interface {
	Record(r automl.TrialResult)
}

// ProgressHandler prints one table row per finished trial.
//
// The first call also prints the column header for the task of the result's
// metrics, so after N calls N+1 rows have been printed. The search engine
// serializes calls, so the handler does no locking.
type ProgressHandler struct {
	r         *Reporter
	recorder  TrialRecorder
	iteration int
	task      automl.Task
	err       error
}

// NewProgressHandler creates a handler printing through r. recorder may be nil.
func NewProgressHandler(r *Reporter, recorder TrialRecorder) *ProgressHandler {
	return &ProgressHandler{r: r, recorder: recorder}
}

var _ automl.ProgressSink = (*ProgressHandler)(nil)

// OnTrialComplete implements automl.ProgressSink. The first write error is
// kept and returned by Err; later calls print nothing.
func (h *ProgressHandler) OnTrialComplete(index int, res automl.TrialResult) {
	if h.recorder != nil {
		h.recorder.Record(res)
	}
	if h.err != nil {
		return
	}
	h.iteration++

	if h.iteration == 1 {
		h.task = res.Metrics.Task
		if h.err = h.r.Header(Columns(h.task, index, res)); h.err != nil {
			return
		}
	}

	if res.Failed() {
		h.err = h.r.Error(fmt.Sprintf("Exception during AutoML iteration: %v", res.Cause()))
		return
	}
	h.err = h.r.Row(Columns(h.task, index, res))
}

// Iterations returns how many trials were reported.
func (h *ProgressHandler) Iterations() int {
	return h.iteration
}

// Err returns the first error writing to the console.
func (h *ProgressHandler) Err() error {
	return h.err
}

func trainerLabel(r automl.TrialResult) string {
	if r.Featurizer == "" {
		return r.Trainer
	}
	return r.Trainer + "[" + r.Featurizer + "]"
}

// Columns returns the progress row for res. The column set depends only on
// task.
func Columns(task automl.Task, index int, res automl.TrialResult) []Column {
	cols := []Column{
		{Label: "", Value: index, Width: 4},
		{Label: "Trainer", Value: trainerLabel(res), Width: 40},
	}
	m := res.Metrics
	switch task {
	case automl.TaskMulticlass:
		var mc automl.MulticlassMetrics
		if m.Multiclass != nil {
			mc = *m.Multiclass
		}
		cols = append(cols,
			metricColumn("MicroAccuracy", mc.MicroAccuracy, 14),
			metricColumn("MacroAccuracy", mc.MacroAccuracy, 14),
		)
	case automl.TaskRegression:
		var rg automl.RegressionMetrics
		if m.Regression != nil {
			rg = *m.Regression
		}
		cols = append(cols,
			metricColumn("RSquared", rg.RSquared, 9),
			metricColumn("Absolute-loss", rg.MAE, 13),
			metricColumn("Squared-loss", rg.MSE, 12),
			metricColumn("RMS-loss", rg.RMSE, 9),
		)
	case automl.TaskRanking:
		var rk automl.RankingMetrics
		if m.Ranking != nil {
			rk = *m.Ranking
		}
		cols = append(cols,
			metricColumn("NDCG@1", rk.NDCG[1], 9),
			metricColumn("NDCG@3", rk.NDCG[3], 9),
			metricColumn("NDCG@10", rk.NDCG[10], 9),
			metricColumn("DCG@10", rk.DCG[10], 9),
		)
	default:
		var b automl.BinaryMetrics
		if m.Binary != nil {
			b = *m.Binary
		}
		cols = append(cols,
			metricColumn("Accuracy", b.Accuracy, 9),
			metricColumn("AUC", b.AUC, 8),
			metricColumn("AUPRC", b.AUPRC, 8),
			metricColumn("F1-score", b.F1, 9),
		)
	}
	return append(cols, Column{Label: "Duration", Value: res.Elapsed, Width: 9, Precision: 3, Align: AlignRight})
}

func metricColumn(label string, v float64, width int) Column {
	return Column{Label: label, Value: v, Width: width, Precision: 4, Align: AlignRight}
}

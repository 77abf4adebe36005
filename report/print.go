package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/dataset"
)

const metricsRule = "************************************************************"

// PrintPreview prints the first n samples.
func (r *Reporter) PrintPreview(samples []dataset.Sample, n int) error {
	head := dataset.Head(samples, n)
	if err := r.Banner(fmt.Sprintf("Showing %d of %d training samples", len(head), len(samples))); err != nil {
		return err
	}
	textWidth := r.width - 2 - 4 - 1 - 5 - 1
	if textWidth < 10 {
		textWidth = 10
	}
	cols := []Column{
		{Label: "Row", Width: 4, Align: AlignRight},
		{Label: "Label", Width: 5},
		{Label: "Text", Width: textWidth},
	}
	if err := r.Header(cols); err != nil {
		return err
	}
	for i, s := range head {
		cols[0].Value = i + 1
		cols[1].Value = s.Label
		cols[2].Value = truncate(strings.Join(strings.Fields(s.Text), " "), textWidth)
		if err := r.Row(cols); err != nil {
			return err
		}
	}
	return nil
}

// PrintMetrics prints m under a heading naming the model.
func (r *Reporter) PrintMetrics(name string, m automl.Metrics) error {
	switch m.Task {
	case automl.TaskBinary:
		if m.Binary != nil {
			return r.PrintBinaryMetrics(name, *m.Binary)
		}
	case automl.TaskMulticlass:
		if m.Multiclass != nil {
			return r.PrintMulticlassMetrics(name, *m.Multiclass)
		}
	case automl.TaskRegression:
		if m.Regression != nil {
			return r.PrintRegressionMetrics(name, *m.Regression)
		}
	case automl.TaskRanking:
		if m.Ranking != nil {
			return r.PrintRankingMetrics(name, *m.Ranking)
		}
	}
	return r.printMetricLines(fmt.Sprintf("Metrics for %s model", name), nil)
}

// PrintBinaryMetrics prints binary classification metrics as percentages.
func (r *Reporter) PrintBinaryMetrics(name string, m automl.BinaryMetrics) error {
	return r.printMetricLines(fmt.Sprintf("Metrics for %s binary classification model", name), []string{
		"Accuracy: " + percent(m.Accuracy),
		"Area Under Curve: " + percent(m.AUC),
		"Area under Precision recall Curve: " + percent(m.AUPRC),
		"F1Score: " + percent(m.F1),
		"PositivePrecision: " + formatFloat(m.PositivePrecision, 2),
		"PositiveRecall: " + formatFloat(m.PositiveRecall, 2),
		"NegativePrecision: " + formatFloat(m.NegativePrecision, 2),
		"NegativeRecall: " + formatFloat(m.NegativeRecall, 2),
		"LogLoss: " + formatFloat(m.LogLoss, 4),
	})
}

// PrintMulticlassMetrics prints multiclass metrics.
func (r *Reporter) PrintMulticlassMetrics(name string, m automl.MulticlassMetrics) error {
	return r.printMetricLines(fmt.Sprintf("Metrics for %s multi-class classification model", name), []string{
		"MicroAccuracy: " + formatFloat(m.MicroAccuracy, 3),
		"MacroAccuracy: " + formatFloat(m.MacroAccuracy, 3),
		"LogLoss: " + formatFloat(m.LogLoss, 4),
	})
}

// PrintRegressionMetrics prints regression metrics.
func (r *Reporter) PrintRegressionMetrics(name string, m automl.RegressionMetrics) error {
	return r.printMetricLines(fmt.Sprintf("Metrics for %s regression model", name), []string{
		"RSquared: " + formatFloat(m.RSquared, 2),
		"Absolute loss: " + formatFloat(m.MAE, 2),
		"Squared loss: " + formatFloat(m.MSE, 2),
		"RMS loss: " + formatFloat(m.RMSE, 2),
	})
}

// PrintRankingMetrics prints NDCG and DCG at every truncation level.
func (r *Reporter) PrintRankingMetrics(name string, m automl.RankingMetrics) error {
	var lines []string
	for _, k := range sortedKeys(m.NDCG) {
		lines = append(lines, fmt.Sprintf("NDCG@%d: %s", k, formatFloat(m.NDCG[k], 4)))
	}
	for _, k := range sortedKeys(m.DCG) {
		lines = append(lines, fmt.Sprintf("DCG@%d: %s", k, formatFloat(m.DCG[k], 4)))
	}
	return r.printMetricLines(fmt.Sprintf("Metrics for %s ranking model", name), lines)
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (r *Reporter) printMetricLines(title string, lines []string) error {
	if err := r.println(metricsRule); err != nil {
		return err
	}
	if err := r.println("*       " + title); err != nil {
		return err
	}
	if err := r.println("*" + strings.Repeat("-", len(metricsRule)-1)); err != nil {
		return err
	}
	for _, l := range lines {
		if err := r.println("*       " + l); err != nil {
			return err
		}
	}
	return r.println(metricsRule)
}

// PredictionLabel names the predicted class.
func PredictionLabel(p automl.Prediction) string {
	if p.Label {
		return "Toxic"
	}
	return "Non Toxic"
}

// FormatPrediction renders "Text: <text> | Prediction: <label> sentiment".
func FormatPrediction(text string, p automl.Prediction) string {
	return fmt.Sprintf("Text: %s | Prediction: %s sentiment", text, PredictionLabel(p))
}

// PrintPrediction prints the prediction line for text.
func (r *Reporter) PrintPrediction(text string, p automl.Prediction) error {
	return r.println(FormatPrediction(text, p))
}

// PrintSaved reports where the model was written and its size.
func (r *Reporter) PrintSaved(path string, size int64) error {
	return r.withColor(colorGreen, func() error {
		return r.printf("The model is saved to %s (%s)\n", path, humanize.Bytes(uint64(size)))
	})
}

// PrintBest summarizes the selected trial.
func (r *Reporter) PrintBest(best automl.TrialResult) error {
	return r.Banner(
		fmt.Sprintf("Best trial: #%d %s", best.Index, trainerLabel(best)),
		fmt.Sprintf("Validation accuracy: %s, trained in %s", percent(best.Metrics.Accuracy()), best.Elapsed.Round(time.Millisecond)),
	)
}

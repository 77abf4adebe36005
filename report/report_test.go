package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/dataset"
	sentierrors "github.com/YuminosukeSato/sentiml/pkg/errors"
)

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestFormatRow(t *testing.T) {
	cols := []Column{
		{Value: 1, Width: 4},
		{Value: "MultinomialNB", Width: 15},
		{Value: 0.95, Width: 8, Precision: 4, Align: AlignRight},
		{Value: math.NaN(), Width: 6, Precision: 2, Align: AlignRight},
		{Value: 1500 * time.Millisecond, Width: 5, Precision: 1, Align: AlignRight},
	}

	row := FormatRow(cols, 60)
	assert.Len(t, row, 60)
	assert.Equal(t, "|1    MultinomialNB     0.9500    NaN   1.5", strings.TrimRight(row[:59], " "))
	assert.True(t, strings.HasSuffix(row, "|"))
	assert.Equal(t, row, FormatRow(cols, 60), "formatting must be deterministic")
}

func TestFormatRowOverflow(t *testing.T) {
	row := FormatRow([]Column{{Value: strings.Repeat("x", 20), Width: 5}}, 10)
	assert.Equal(t, "|"+strings.Repeat("x", 20)+"|", row)
}

func TestFormatHeaderMatchesRowLayout(t *testing.T) {
	res := automl.TrialResult{Trainer: "LogisticRegression", Metrics: automl.Binary(automl.BinaryMetrics{Accuracy: 0.5})}
	cols := Columns(automl.TaskBinary, 1, res)

	header := FormatHeader(cols, DefaultWidth)
	row := FormatRow(cols, DefaultWidth)
	assert.Len(t, header, DefaultWidth)
	assert.Len(t, row, DefaultWidth)
	assert.Contains(t, header, "Accuracy")
	assert.Contains(t, header, "F1-score")
	assert.Equal(t, strings.Index(header, "Duration")+len("Duration"), strings.LastIndex(row, "0.000")+len("0.000"))
}

func TestDurationColumnShowsMilliseconds(t *testing.T) {
	res := automl.TrialResult{Trainer: "MultinomialNB", Elapsed: 12 * time.Millisecond}
	cols := Columns(automl.TaskBinary, 1, res)

	dur := cols[len(cols)-1]
	assert.Equal(t, "Duration", dur.Label)
	assert.Equal(t, "    0.012", FormatCell(dur))
}

func TestColumnsPerTask(t *testing.T) {
	tests := []struct {
		task   automl.Task
		labels []string
	}{
		{automl.TaskBinary, []string{"", "Trainer", "Accuracy", "AUC", "AUPRC", "F1-score", "Duration"}},
		{automl.TaskMulticlass, []string{"", "Trainer", "MicroAccuracy", "MacroAccuracy", "Duration"}},
		{automl.TaskRegression, []string{"", "Trainer", "RSquared", "Absolute-loss", "Squared-loss", "RMS-loss", "Duration"}},
		{automl.TaskRanking, []string{"", "Trainer", "NDCG@1", "NDCG@3", "NDCG@10", "DCG@10", "Duration"}},
	}
	for _, tt := range tests {
		t.Run(tt.task.String(), func(t *testing.T) {
			cols := Columns(tt.task, 1, automl.TrialResult{})
			var got []string
			for _, c := range cols {
				got = append(got, c.Label)
			}
			assert.Equal(t, tt.labels, got)
		})
	}
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	require.NoError(t, r.Banner("short", "a longer line"))

	assert.Equal(t, []string{"", "short", "a longer line", "#############"}, lines(buf.String()))
}

func TestBannerColorIsRestored(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithColor(true))
	require.NoError(t, r.Banner("title"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, colorYellow))
	assert.True(t, strings.HasSuffix(out, colorReset))
	assert.Equal(t, "", r.current)
}

func TestNestedColorRestoresPrevious(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithColor(true))
	err := r.withColor(colorYellow, func() error {
		return r.withColor(colorRed, func() error { return nil })
	})
	require.NoError(t, err)
	assert.Equal(t, colorYellow+colorRed+colorYellow+colorReset, buf.String())
}

type failingWriter struct {
	n     int
	calls int
	buf   bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls == w.n {
		return 0, errors.New("disk full")
	}
	return w.buf.Write(p)
}

func TestColorRestoredOnWriteError(t *testing.T) {
	// The second write (the first banner line) fails.
	w := &failingWriter{n: 2}
	r := New(w, WithColor(true))

	err := r.Banner("title")
	require.EqualError(t, err, "disk full")
	assert.True(t, strings.HasSuffix(w.buf.String(), colorReset))
	assert.Equal(t, "", r.current)
}

func TestPrintPreview(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithWidth(60))
	samples := []dataset.Sample{
		{Text: "rude movie", Label: true},
		{Text: "lovely\tfilm", Label: false},
		{Text: strings.Repeat("long ", 30), Label: true},
		{Text: "x"},
		{Text: "y"},
	}
	require.NoError(t, r.PrintPreview(samples, 4))

	out := lines(buf.String())
	// blank, title, rule, header, 4 rows
	require.Len(t, out, 8)
	assert.Equal(t, "Showing 4 of 5 training samples", out[1])
	for _, l := range out[3:] {
		assert.Len(t, l, 60)
	}
	assert.Contains(t, out[4], "true  rude movie")
	assert.Contains(t, out[5], "lovely film")
	assert.Contains(t, out[6], "...|")
}

func TestPrintBinaryMetrics(t *testing.T) {
	m := automl.BinaryMetrics{Accuracy: 0.9512, AUC: 0.98, AUPRC: 0.97, F1: math.NaN()}

	var a, b bytes.Buffer
	require.NoError(t, New(&a).PrintMetrics("LogisticRegression", automl.Binary(m)))
	require.NoError(t, New(&b).PrintBinaryMetrics("LogisticRegression", m))
	assert.Equal(t, a.String(), b.String())

	out := a.String()
	assert.Contains(t, out, "Metrics for LogisticRegression binary classification model")
	assert.Contains(t, out, "Accuracy: 95.12%")
	assert.Contains(t, out, "F1Score: NaN")
}

func TestPrintOtherMetrics(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	require.NoError(t, r.PrintMetrics("m", automl.Multiclass(automl.MulticlassMetrics{MicroAccuracy: 0.5})))
	require.NoError(t, r.PrintMetrics("m", automl.Regression(automl.RegressionMetrics{RSquared: 0.25})))
	require.NoError(t, r.PrintMetrics("m", automl.Ranking(automl.RankingMetrics{
		NDCG: map[int]float64{10: 0.5, 1: 1},
		DCG:  map[int]float64{10: 2},
	})))

	out := buf.String()
	assert.Contains(t, out, "MicroAccuracy: 0.500")
	assert.Contains(t, out, "RSquared: 0.25")
	assert.Less(t, strings.Index(out, "NDCG@1:"), strings.Index(out, "NDCG@10:"))
	assert.Contains(t, out, "DCG@10: 2.0000")
}

func TestPrintPrediction(t *testing.T) {
	tests := []struct {
		label bool
		want  string
	}{
		{true, "Text: This is a very rude movie | Prediction: Toxic sentiment\n"},
		{false, "Text: This is a very rude movie | Prediction: Non Toxic sentiment\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, New(&buf).PrintPrediction("This is a very rude movie", automl.Prediction{Label: tt.label}))
		assert.Equal(t, tt.want, buf.String())
	}
}

func TestPrintSaved(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf).PrintSaved("model.bin", 12345))
	assert.Equal(t, "The model is saved to model.bin (12 kB)\n", buf.String())
}

type recorder struct{ results []automl.TrialResult }

func (r *recorder) Record(res automl.TrialResult) { r.results = append(r.results, res) }

func TestProgressHandlerRowCount(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		var buf bytes.Buffer
		rec := &recorder{}
		h := NewProgressHandler(New(&buf), rec)

		for i := 1; i <= n; i++ {
			res := automl.TrialResult{
				Index:   i,
				Trainer: "MultinomialNB",
				Metrics: automl.Binary(automl.BinaryMetrics{Accuracy: 0.8}),
				Elapsed: time.Second,
			}
			if i == 2 {
				res.Err = sentierrors.NewTrialFailure("MultinomialNB", errors.New("bad input"))
			}
			h.OnTrialComplete(i, res)
		}

		require.NoError(t, h.Err())
		assert.Equal(t, n, h.Iterations())
		assert.Len(t, rec.results, n)
		assert.Len(t, lines(buf.String()), n+1)
	}
}

func TestProgressHandlerExceptionLine(t *testing.T) {
	var buf bytes.Buffer
	h := NewProgressHandler(New(&buf), nil)

	h.OnTrialComplete(1, automl.TrialResult{
		Trainer: "PassiveAggressive",
		Metrics: automl.Binary(automl.BinaryMetrics{Accuracy: 0.99}),
		Err:     sentierrors.NewTrialFailure("PassiveAggressive", errors.New("diverged")),
	})

	out := lines(buf.String())
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "Trainer")
	assert.Equal(t, "Exception during AutoML iteration: diverged", out[1])
}

func TestProgressHandlerUsesFirstTaskHeader(t *testing.T) {
	var buf bytes.Buffer
	h := NewProgressHandler(New(&buf), nil)
	res := automl.TrialResult{Trainer: "Ranker", Metrics: automl.Ranking(automl.RankingMetrics{
		NDCG: map[int]float64{1: 1, 3: 0.9, 10: 0.8},
		DCG:  map[int]float64{10: 4.5},
	})}
	h.OnTrialComplete(1, res)

	out := lines(buf.String())
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "NDCG@10")
	assert.Contains(t, out[1], "4.5000")
}

func TestProgressHandlerKeepsWriteError(t *testing.T) {
	w := &failingWriter{n: 1}
	h := NewProgressHandler(New(w), nil)
	res := automl.TrialResult{Metrics: automl.Binary(automl.BinaryMetrics{})}

	h.OnTrialComplete(1, res)
	h.OnTrialComplete(2, res)

	require.EqualError(t, h.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
}

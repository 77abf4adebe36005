package automl

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/dataset"
	"github.com/YuminosukeSato/sentiml/metrics"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// Evaluate scores m on labeled samples and returns binary metrics.
func Evaluate(m *Model, samples []dataset.Sample) (Metrics, error) {
	if m == nil {
		return Metrics{}, errors.NewNotFittedError("automl.Model", "Evaluate")
	}
	if len(samples) == 0 {
		return Metrics{}, errors.Wrap(errors.ErrEmptyData, "automl.Evaluate")
	}

	preds, err := m.PredictBatch(samples)
	if err != nil {
		return Metrics{}, err
	}

	n := len(samples)
	yTrue := mat.NewVecDense(n, dataset.Labels(samples))
	yPred := mat.NewVecDense(n, nil)
	yProb := mat.NewVecDense(n, nil)
	for i, p := range preds {
		if p.Label {
			yPred.SetVec(i, 1)
		}
		yProb.SetVec(i, p.Probability)
	}
	return binaryMetrics(yTrue, yPred, yProb)
}

func binaryMetrics(yTrue, yPred, yProb *mat.VecDense) (Metrics, error) {
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	cm, err := metrics.NewBinaryConfusion(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	auc, err := metrics.AUC(yTrue, yProb)
	if err != nil {
		return Metrics{}, err
	}
	auprc, err := metrics.AveragePrecision(yTrue, yProb)
	if err != nil {
		return Metrics{}, err
	}
	logLoss, err := metrics.BinaryLogLoss(yTrue, yProb)
	if err != nil {
		return Metrics{}, err
	}

	return Binary(BinaryMetrics{
		Accuracy:          acc,
		AUC:               auc,
		AUPRC:             auprc,
		F1:                cm.F1(),
		PositivePrecision: cm.PositivePrecision(),
		PositiveRecall:    cm.PositiveRecall(),
		NegativePrecision: cm.NegativePrecision(),
		NegativeRecall:    cm.NegativeRecall(),
		LogLoss:           logLoss,
	}), nil
}

// EvaluateMulticlass computes multiclass metrics. proba columns follow classes.
func EvaluateMulticlass(yTrue, yPred *mat.VecDense, proba mat.Matrix, classes []int) (Metrics, error) {
	micro, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	macro, err := metrics.MacroAccuracy(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	logLoss, err := metrics.MulticlassLogLoss(yTrue, proba, classes)
	if err != nil {
		return Metrics{}, err
	}
	return Multiclass(MulticlassMetrics{
		MicroAccuracy: micro,
		MacroAccuracy: macro,
		LogLoss:       logLoss,
	}), nil
}

// EvaluateRegression computes regression metrics.
func EvaluateRegression(yTrue, yPred *mat.VecDense) (Metrics, error) {
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	return Regression(RegressionMetrics{RSquared: r2, MAE: mae, MSE: mse, RMSE: rmse}), nil
}

// EvaluateRanking computes NDCG and DCG at RankingTruncations for one
// ranked list.
func EvaluateRanking(relevance, scores *mat.VecDense) (Metrics, error) {
	out := RankingMetrics{
		NDCG: make(map[int]float64, len(RankingTruncations)),
		DCG:  make(map[int]float64, len(RankingTruncations)),
	}
	for _, k := range RankingTruncations {
		ndcg, err := metrics.NDCG(relevance, scores, k)
		if err != nil {
			return Metrics{}, err
		}
		dcg, err := metrics.DCG(relevance, scores, k)
		if err != nil {
			return Metrics{}, err
		}
		out.NDCG[k] = ndcg
		out.DCG[k] = dcg
	}
	return Ranking(out), nil
}

package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// MacroAccuracy はクラスごとの再現率の平均を計算する
// クラスの偏りがあるデータで、少数クラスの性能を等しく評価する
func MacroAccuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MacroAccuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	total := make(map[float64]int)
	correct := make(map[float64]int)
	for i := 0; i < n; i++ {
		c := yTrue.AtVec(i)
		total[c]++
		if yPred.AtVec(i) == c {
			correct[c]++
		}
	}

	var sum float64
	for c, cnt := range total {
		sum += float64(correct[c]) / float64(cnt)
	}
	return sum / float64(len(total)), nil
}

// BinaryConfusion は二値分類の混同行列（陽性ラベルは1）
type BinaryConfusion struct {
	TP, FP, TN, FN int
}

// NewBinaryConfusion は正解ラベルと予測ラベルから混同行列を作成する
func NewBinaryConfusion(yTrue, yPred *mat.VecDense) (BinaryConfusion, error) {
	n, err := validatePair("NewBinaryConfusion", yTrue, yPred)
	if err != nil {
		return BinaryConfusion{}, err
	}
	if err := validateBinary("NewBinaryConfusion", yTrue); err != nil {
		return BinaryConfusion{}, err
	}

	var cm BinaryConfusion
	for i := 0; i < n; i++ {
		actual := yTrue.AtVec(i) == 1
		predicted := yPred.AtVec(i) == 1
		switch {
		case actual && predicted:
			cm.TP++
		case !actual && predicted:
			cm.FP++
		case !actual && !predicted:
			cm.TN++
		default:
			cm.FN++
		}
	}
	return cm, nil
}

// PositivePrecision は陽性クラスの適合率 TP / (TP + FP)
func (cm BinaryConfusion) PositivePrecision() float64 {
	return ratio("positive_precision", "no predicted positives", cm.TP, cm.TP+cm.FP)
}

// PositiveRecall は陽性クラスの再現率 TP / (TP + FN)
func (cm BinaryConfusion) PositiveRecall() float64 {
	return ratio("positive_recall", "no true positives in y_true", cm.TP, cm.TP+cm.FN)
}

// NegativePrecision は陰性クラスの適合率 TN / (TN + FN)
func (cm BinaryConfusion) NegativePrecision() float64 {
	return ratio("negative_precision", "no predicted negatives", cm.TN, cm.TN+cm.FN)
}

// NegativeRecall は陰性クラスの再現率 TN / (TN + FP)
func (cm BinaryConfusion) NegativeRecall() float64 {
	return ratio("negative_recall", "no true negatives in y_true", cm.TN, cm.TN+cm.FP)
}

// F1 は陽性クラスのF1スコア
func (cm BinaryConfusion) F1() float64 {
	denom := 2*cm.TP + cm.FP + cm.FN
	return ratio("f1_score", "no true or predicted positives", 2*cm.TP, denom)
}

// ratio は分母が0の場合に警告を出して0を返す
func ratio(metric, condition string, num, denom int) float64 {
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return float64(num) / float64(denom)
}

// F1Score は陽性クラス（1）のF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewBinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1(), nil
}

// AUC はROC曲線下の面積を計算する
//
// Mann-Whitney U 統計量（同順位は平均順位）で計算する。
// 正解ラベルが1クラスのみの場合は定義できないため、警告を出して0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := validateBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	// 同順位を平均順位にまとめる
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg, rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	s, err := firstColumn("AUCMatrix", yScore)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

// AveragePrecision は適合率-再現率曲線下の面積（AUPRC）を計算する
//
// AP = Σ (R_k - R_{k-1}) * P_k をスコアの異なる閾値ごとに合計する。
// 陽性サンプルが無い場合は警告を出して0を返す。
func AveragePrecision(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validatePair("AveragePrecision", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := validateBinary("AveragePrecision", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) > yScore.AtVec(idx[b])
	})

	var totalPos float64
	for i := 0; i < n; i++ {
		totalPos += yTrue.AtVec(i)
	}
	if totalPos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("average_precision", "no positive samples in y_true", 0))
		return 0, nil
	}

	var ap, tp, fp, prevRecall float64
	for i := 0; i < n; {
		// 同じスコアは1つの閾値として扱う
		j := i
		for ; j < n && yScore.AtVec(idx[j]) == yScore.AtVec(idx[i]); j++ {
			if yTrue.AtVec(idx[j]) == 1 {
				tp++
			} else {
				fp++
			}
		}
		recall := tp / totalPos
		precision := tp / (tp + fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		i = j
	}
	return ap, nil
}

// BinaryLogLoss は二値分類の対数損失を計算する
// yProb は陽性クラスの確率。log(0) は errors.StabilizeLog で下限を設ける。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := validateBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := yProb.AtVec(i)
		if yTrue.AtVec(i) == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}

// MulticlassLogLoss は多クラス分類の対数損失を計算する
// proba の列は classes の順序に従う。
func MulticlassLogLoss(yTrue *mat.VecDense, proba mat.Matrix, classes []int) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 || proba == nil {
		return 0, errors.NewValueError("MulticlassLogLoss", "empty input")
	}
	n := yTrue.Len()
	r, c := proba.Dims()
	if r != n {
		return 0, errors.NewDimensionError("MulticlassLogLoss", n, r, 0)
	}
	if c != len(classes) {
		return 0, errors.NewDimensionError("MulticlassLogLoss", len(classes), c, 1)
	}

	col := make(map[int]int, len(classes))
	for j, cls := range classes {
		col[cls] = j
	}

	var sum float64
	for i := 0; i < n; i++ {
		j, ok := col[int(yTrue.AtVec(i))]
		if !ok {
			return 0, errors.NewValueError("MulticlassLogLoss", "label not present in classes")
		}
		sum -= errors.StabilizeLog(proba.At(i, j))
	}
	return sum / float64(n), nil
}

// Precision は陽性クラス（1）の適合率を計算する
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewBinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.PositivePrecision(), nil
}

// Recall は陽性クラス（1）の再現率を計算する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewBinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.PositiveRecall(), nil
}

// Package linear_model は線形分類器（ロジスティック回帰、Passive Aggressive）を提供する。
package linear_model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// weightsVersion は ExportWeights が書き出すフォーマットのバージョン
const weightsVersion = "1"

// sparseRow は1サンプルの非ゼロ要素
// テキスト特徴量はほとんどがゼロなので、学習ループは非ゼロ要素だけを走査する。
type sparseRow struct {
	idx []int
	val []float64
}

func (r sparseRow) dot(w []float64) float64 {
	var s float64
	for k, j := range r.idx {
		s += r.val[k] * w[j]
	}
	return s
}

func (r sparseRow) squaredNorm() float64 {
	var s float64
	for _, v := range r.val {
		s += v * v
	}
	return s
}

// toSparseRows は X を行ごとの非ゼロ要素に変換する
func toSparseRows(X mat.Matrix) []sparseRow {
	r, c := X.Dims()
	rows := make([]sparseRow, r)
	for i := 0; i < r; i++ {
		var row sparseRow
		for j := 0; j < c; j++ {
			if v := X.At(i, j); v != 0 {
				row.idx = append(row.idx, j)
				row.val = append(row.val, v)
			}
		}
		rows[i] = row
	}
	return rows
}

// checkXY は X と y の形状を検証する
func checkXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "X and y must not be nil")
	}
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.Wrap(errors.ErrEmptyData, op)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	return nSamples, nFeatures, nil
}

// uniqueClasses は y に含まれるラベルを昇順で返す
func uniqueClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < rows; i++ {
		seen[int(y.At(i, 0))] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// binaryTargets は重み行 row の学習に使う {0,1} の目的変数を返す
// 2クラスでは1行（陽性は classes[1]）、多クラスでは one-vs-rest でクラスごとに1行。
func binaryTargets(y mat.Matrix, classes []int, row int) []float64 {
	positive := classes[row]
	if len(classes) == 2 {
		positive = classes[1]
	}
	n, _ := y.Dims()
	t := make([]float64, n)
	for i := 0; i < n; i++ {
		if int(y.At(i, 0)) == positive {
			t[i] = 1
		}
	}
	return t
}

// weightRows は2クラスなら1、それ以外はクラス数を返す
func weightRows(nClasses int) int {
	if nClasses == 2 {
		return 1
	}
	return nClasses
}

// decisionFunction は X・coefᵀ + intercept を計算する
func decisionFunction(X mat.Matrix, coef [][]float64, intercept []float64) *mat.Dense {
	nRows := len(coef)
	nFeatures := len(coef[0])
	w := mat.NewDense(nRows, nFeatures, nil)
	for r, row := range coef {
		w.SetRow(r, row)
	}

	n, _ := X.Dims()
	scores := mat.NewDense(n, nRows, nil)
	scores.Mul(X, w.T())
	for i := 0; i < n; i++ {
		for r := 0; r < nRows; r++ {
			scores.Set(i, r, scores.At(i, r)+intercept[r])
		}
	}
	return scores
}

// probaFromScores はスコアを確率に変換する
// 2クラスではシグモイド、多クラスではソフトマックスを使う。
func probaFromScores(scores *mat.Dense, nClasses int) *mat.Dense {
	n, _ := scores.Dims()
	proba := mat.NewDense(n, nClasses, nil)
	for i := 0; i < n; i++ {
		if nClasses == 2 {
			p := sigmoid(scores.At(i, 0))
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}
		row := scores.RawRowView(i)
		lse := errors.LogSumExp(row)
		for c := 0; c < nClasses; c++ {
			proba.Set(i, c, math.Exp(row[c]-lse))
		}
	}
	return proba
}

// labelsFromScores はスコアが最大のクラスラベルを返す
func labelsFromScores(scores *mat.Dense, classes []int) *mat.Dense {
	n, nRows := scores.Dims()
	labels := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if len(classes) == 2 {
			label := classes[0]
			if scores.At(i, 0) > 0 {
				label = classes[1]
			}
			labels.Set(i, 0, float64(label))
			continue
		}
		best := 0
		for r := 1; r < nRows; r++ {
			if scores.At(i, r) > scores.At(i, best) {
				best = r
			}
		}
		labels.Set(i, 0, float64(classes[best]))
	}
	return labels
}

// checkCoefficients は係数に NaN や Inf が含まれていないことを確認する
func checkCoefficients(op string, coef [][]float64, intercept []float64, iteration int) error {
	for _, row := range coef {
		if err := errors.CheckNumericalStability(op, row, iteration); err != nil {
			return err
		}
	}
	return errors.CheckNumericalStability(op, intercept, iteration)
}

func copyRows(src [][]float64) [][]float64 {
	dst := make([][]float64, len(src))
	for i, row := range src {
		dst[i] = append([]float64(nil), row...)
	}
	return dst
}

func boolParam(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

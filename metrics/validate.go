// Package metrics は分類・回帰・ランキングの評価指標を提供する。
// 入力はすべて gonum の *mat.VecDense で、長さの不一致や空入力はエラーとして返す。
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// validatePair は2つのベクトルが空でなく同じ長さであることを確認し、長さを返す
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// validateBinary はラベルが0または1であることを確認する
func validateBinary(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		v := yTrue.AtVec(i)
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

// firstColumn は行列の先頭列をベクトルとして取り出す
func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

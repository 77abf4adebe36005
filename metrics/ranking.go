package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// validateRanking は関連度とスコアの組と k を検証し、評価に使う上位件数を返す
// k < 0 は全件を意味する。
func validateRanking(op string, relevance, scores *mat.VecDense, k int) (int, error) {
	n, err := validatePair(op, relevance, scores)
	if err != nil {
		return 0, err
	}
	if k == 0 {
		return 0, errors.NewValidationError("k", "must be positive or negative for all", k)
	}
	for i := 0; i < n; i++ {
		if relevance.AtVec(i) < 0 {
			return 0, errors.NewValueError(op, "relevance must be non-negative")
		}
	}
	if k < 0 || k > n {
		k = n
	}
	return k, nil
}

// dcgAt は order の順に並べたときの上位 k 件の DCG
func dcgAt(relevance *mat.VecDense, order []int, k int) float64 {
	var dcg float64
	for i := 0; i < k; i++ {
		gain := math.Pow(2, relevance.AtVec(order[i])) - 1
		dcg += gain / math.Log2(float64(i)+2)
	}
	return dcg
}

// descending はスコアの降順に並べたインデックスを返す（同点は元の順序）
func descending(v *mat.VecDense) []int {
	idx := make([]int, v.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return v.AtVec(idx[a]) > v.AtVec(idx[b])
	})
	return idx
}

// DCG は予測スコア順に並べたときの上位 k 件の Discounted Cumulative Gain を計算する
//
// 利得は 2^rel - 1、割引は log2(順位 + 1)。
func DCG(relevance, scores *mat.VecDense, k int) (float64, error) {
	k, err := validateRanking("DCG", relevance, scores, k)
	if err != nil {
		return 0, err
	}
	return dcgAt(relevance, descending(scores), k), nil
}

// NDCG は DCG を理想順序の DCG で正規化した値を計算する
// 関連度がすべて0の場合は0を返す。
func NDCG(relevance, scores *mat.VecDense, k int) (float64, error) {
	k, err := validateRanking("NDCG", relevance, scores, k)
	if err != nil {
		return 0, err
	}

	ideal := dcgAt(relevance, descending(relevance), k)
	if ideal == 0 {
		return 0, nil
	}
	return dcgAt(relevance, descending(scores), k) / ideal, nil
}

// NDCGMatrix は行列形式の入力に対して NDCG を計算する（先頭列を使用）
func NDCGMatrix(relevance, scores mat.Matrix, k int) (float64, error) {
	r, err := firstColumn("NDCGMatrix", relevance)
	if err != nil {
		return 0, err
	}
	s, err := firstColumn("NDCGMatrix", scores)
	if err != nil {
		return 0, err
	}
	return NDCG(r, s, k)
}

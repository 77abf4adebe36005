// Package naive_bayes は多項分布ナイーブベイズ分類器を提供する。
package naive_bayes

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// minAlpha より小さい平滑化パラメータは数値的に不安定なため切り上げる
const minAlpha = 1e-10

// MultinomialNB は単語出現回数などの離散特徴量に対するナイーブベイズ分類器
//
// 特徴量は非負でなければならない。PartialFit による逐次学習に対応する。
type MultinomialNB struct {
	state *model.StateManager
	mu    sync.RWMutex

	// ハイパーパラメータ
	alpha    float64 // 加法（ラプラス）平滑化
	fitPrior bool    // クラス事前確率を学習するか（false なら一様）

	// 学習パラメータ
	classes_        []int
	classCount_     []float64
	featureCount_   [][]float64 // クラス数 x 特徴数
	classLogPrior_  []float64
	featureLogProb_ *mat.Dense // クラス数 x 特徴数
	nFeatures_      int
	nSamplesSeen_   int
}

// Option は MultinomialNB の設定オプション
type Option func(*MultinomialNB)

// WithAlpha は平滑化パラメータを設定する
func WithAlpha(alpha float64) Option {
	return func(nb *MultinomialNB) { nb.alpha = alpha }
}

// WithFitPrior はクラス事前確率を学習するかを設定する
func WithFitPrior(fit bool) Option {
	return func(nb *MultinomialNB) { nb.fitPrior = fit }
}

// NewMultinomialNB は新しい MultinomialNB を作成する
func NewMultinomialNB(opts ...Option) *MultinomialNB {
	nb := &MultinomialNB{
		state:    model.NewStateManager(),
		alpha:    1.0,
		fitPrior: true,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit はモデルを一から学習する
func (nb *MultinomialNB) Fit(X, y mat.Matrix) error {
	if err := checkXY("MultinomialNB.Fit", X, y); err != nil {
		return err
	}
	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return errors.Wrapf(errors.ErrSingleClass, "MultinomialNB.Fit: got class %v", classes)
	}

	nb.mu.Lock()
	nb.reset()
	nb.mu.Unlock()
	return nb.PartialFit(X, y, classes)
}

// PartialFit はミニバッチで逐次的に学習する
// 初回呼び出しでは classes に全クラスを指定する（nil なら y から抽出）。
func (nb *MultinomialNB) PartialFit(X, y mat.Matrix, classes []int) error {
	if err := checkXY("MultinomialNB.PartialFit", X, y); err != nil {
		return err
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()

	nSamples, nFeatures := X.Dims()
	if nb.classes_ == nil {
		if classes == nil {
			classes = uniqueClasses(y)
		}
		if len(classes) < 2 {
			return errors.Wrap(errors.ErrSingleClass, "MultinomialNB.PartialFit")
		}
		nb.initCounts(classes, nFeatures)
	}
	if nFeatures != nb.nFeatures_ {
		return errors.NewDimensionError("MultinomialNB.PartialFit", nb.nFeatures_, nFeatures, 1)
	}

	// 先に全体を検証し、途中で失敗しても集計を汚さない
	classIdx := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		c := nb.classIndex(int(y.At(i, 0)))
		if c < 0 {
			return errors.NewValueError("MultinomialNB.PartialFit", "label not present in classes")
		}
		classIdx[i] = c
		for j := 0; j < nFeatures; j++ {
			if X.At(i, j) < 0 {
				return errors.NewValueError("MultinomialNB.PartialFit", "negative values in X are not allowed")
			}
		}
	}

	for i := 0; i < nSamples; i++ {
		c := classIdx[i]
		nb.classCount_[c]++
		for j := 0; j < nFeatures; j++ {
			nb.featureCount_[c][j] += X.At(i, j)
		}
	}
	nb.nSamplesSeen_ += nSamples
	nb.updateLogProbs()

	nb.state.SetDimensions(nFeatures, nb.nSamplesSeen_)
	nb.state.SetFitted()
	return nil
}

// initCounts は集計用の配列を確保する
func (nb *MultinomialNB) initCounts(classes []int, nFeatures int) {
	nb.classes_ = append([]int(nil), classes...)
	sort.Ints(nb.classes_)
	nb.nFeatures_ = nFeatures
	nb.classCount_ = make([]float64, len(classes))
	nb.featureCount_ = make([][]float64, len(classes))
	for c := range nb.featureCount_ {
		nb.featureCount_[c] = make([]float64, nFeatures)
	}
}

// updateLogProbs は集計から対数確率を再計算する
func (nb *MultinomialNB) updateLogProbs() {
	alpha := nb.alpha
	if alpha < minAlpha {
		errors.Warn(errors.NewValidationError("alpha", "too small, clipped to 1e-10", nb.alpha))
		alpha = minAlpha
	}

	nClasses := len(nb.classes_)
	nb.featureLogProb_ = mat.NewDense(nClasses, nb.nFeatures_, nil)
	for c := 0; c < nClasses; c++ {
		total := 0.0
		for _, v := range nb.featureCount_[c] {
			total += v
		}
		denom := math.Log(total + alpha*float64(nb.nFeatures_))
		for j, v := range nb.featureCount_[c] {
			nb.featureLogProb_.Set(c, j, math.Log(v+alpha)-denom)
		}
	}

	nb.classLogPrior_ = make([]float64, nClasses)
	if !nb.fitPrior {
		for c := range nb.classLogPrior_ {
			nb.classLogPrior_[c] = -math.Log(float64(nClasses))
		}
		return
	}
	var n float64
	for _, cnt := range nb.classCount_ {
		n += cnt
	}
	for c, cnt := range nb.classCount_ {
		nb.classLogPrior_[c] = math.Log(cnt) - math.Log(n)
	}
}

// jointLogLikelihood は log P(c) + Σ x_j log P(j|c) を計算する
func (nb *MultinomialNB) jointLogLikelihood(X mat.Matrix) (*mat.Dense, error) {
	if err := nb.state.RequireFitted("MultinomialNB", "Predict"); err != nil {
		return nil, err
	}
	n, cols := X.Dims()
	if err := nb.state.RequireFeatures("MultinomialNB.Predict", cols); err != nil {
		return nil, err
	}

	jll := mat.NewDense(n, len(nb.classes_), nil)
	jll.Mul(X, nb.featureLogProb_.T())
	for i := 0; i < n; i++ {
		for c, prior := range nb.classLogPrior_ {
			jll.Set(i, c, jll.At(i, c)+prior)
		}
	}
	return jll, nil
}

// PredictLogProba は各クラスの対数事後確率を返す
func (nb *MultinomialNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	n, _ := jll.Dims()
	for i := 0; i < n; i++ {
		row := jll.RawRowView(i)
		lse := errors.LogSumExp(row)
		for c := range row {
			row[c] -= lse
		}
	}
	return jll, nil
}

// PredictProba は各クラスの事後確率を返す（列は Classes() の順）
func (nb *MultinomialNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	proba := mat.DenseCopyOf(logProba)
	proba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, proba)
	return proba, nil
}

// Predict は事後確率が最大のクラスを返す
func (nb *MultinomialNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	n, nClasses := jll.Dims()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for c := 1; c < nClasses; c++ {
			if jll.At(i, c) > jll.At(i, best) {
				best = c
			}
		}
		predictions.Set(i, 0, float64(nb.classes_[best]))
	}
	return predictions, nil
}

// Score は正解率を返す
func (nb *MultinomialNB) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Classes は学習したクラスラベルを返す
func (nb *MultinomialNB) Classes() []int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return append([]int(nil), nb.classes_...)
}

// NSamplesSeen は学習に使ったサンプル数の累計を返す
func (nb *MultinomialNB) NSamplesSeen() int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.nSamplesSeen_
}

// GetParams はハイパーパラメータを返す
func (nb *MultinomialNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":     nb.alpha,
		"fit_prior": nb.fitPrior,
	}
}

// ExportWeights は集計値（特徴量カウントとクラスカウント）を書き出す
// 対数確率ではなく集計値を保存するので、復元後も PartialFit を続けられる。
func (nb *MultinomialNB) ExportWeights() (*model.ModelWeights, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()

	if err := nb.state.RequireFitted("MultinomialNB", "ExportWeights"); err != nil {
		return nil, err
	}
	coef := make([][]float64, len(nb.featureCount_))
	for c, row := range nb.featureCount_ {
		coef[c] = append([]float64(nil), row...)
	}
	fitPrior := 0.0
	if nb.fitPrior {
		fitPrior = 1
	}
	return &model.ModelWeights{
		ModelType:    "MultinomialNB",
		Version:      "1",
		Coefficients: coef,
		Intercepts:   append([]float64(nil), nb.classCount_...),
		Classes:      append([]int(nil), nb.classes_...),
		NFeatures:    nb.nFeatures_,
		Hyperparameters: map[string]float64{
			"alpha":     nb.alpha,
			"fit_prior": fitPrior,
		},
		IsFitted: true,
	}, nil
}

// ImportWeights は ExportWeights の出力からモデルを復元する
func (nb *MultinomialNB) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("MultinomialNB.ImportWeights", "nil weights")
	}
	if w.ModelType != "MultinomialNB" {
		return errors.NewModelError("MultinomialNB.ImportWeights", "model type mismatch: "+w.ModelType, nil)
	}
	if err := w.Validate(); err != nil {
		return errors.NewModelError("MultinomialNB.ImportWeights", "invalid weights", err)
	}
	if len(w.Coefficients) != len(w.Classes) {
		return errors.NewModelError("MultinomialNB.ImportWeights", "one count row per class is required", nil)
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()

	nb.reset()
	if a, ok := w.Hyperparameters["alpha"]; ok {
		nb.alpha = a
	}
	if fp, ok := w.Hyperparameters["fit_prior"]; ok {
		nb.fitPrior = fp != 0
	}
	nb.initCounts(w.Classes, w.NFeatures)
	for c := range w.Coefficients {
		copy(nb.featureCount_[c], w.Coefficients[c])
		nb.classCount_[c] = w.Intercepts[c]
		nb.nSamplesSeen_ += int(w.Intercepts[c])
	}
	nb.updateLogProbs()

	nb.state.SetDimensions(w.NFeatures, nb.nSamplesSeen_)
	nb.state.SetFitted()
	return nil
}

func (nb *MultinomialNB) classIndex(label int) int {
	for i, c := range nb.classes_ {
		if c == label {
			return i
		}
	}
	return -1
}

func (nb *MultinomialNB) reset() {
	nb.classes_ = nil
	nb.classCount_ = nil
	nb.featureCount_ = nil
	nb.classLogPrior_ = nil
	nb.featureLogProb_ = nil
	nb.nFeatures_ = 0
	nb.nSamplesSeen_ = 0
	nb.state.Reset()
}

func checkXY(op string, X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError(op, "X and y must not be nil")
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, op)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	return nil
}

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

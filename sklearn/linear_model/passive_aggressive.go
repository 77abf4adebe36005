package linear_model

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// PassiveAggressiveClassifier は受動的攻撃的分類モデル
//
// 2クラスでは重みベクトル1本、多クラスでは one-vs-rest でクラスごとに1本を学習する。
// 確率はマージンのシグモイド（多クラスではソフトマックス）で近似する。
type PassiveAggressiveClassifier struct {
	state *model.StateManager
	mu    sync.RWMutex

	// ハイパーパラメータ
	C            float64 // 正則化パラメータ
	fitIntercept bool    // 切片を学習するか
	maxIter      int     // 最大エポック数
	tol          float64 // エポック平均損失の変化がこれ未満なら収束
	shuffle      bool    // 各エポックでデータをシャッフルするか
	randomState  int64   // 乱数シード（負なら非決定的）
	averagePA    bool    // 平均化PAを使用するか
	loss         string  // 損失関数: "hinge", "squared_hinge"

	// 学習パラメータ
	coef_         [][]float64
	intercept_    []float64
	avgCoef_      [][]float64
	avgIntercept_ []float64
	classes_      []int
	nFeatures_    int

	// 学習状態
	nIter_ int   // 実行されたエポック数
	t_     int64 // 総ステップ数
}

// PassiveAggressiveOption は設定オプション
type PassiveAggressiveOption func(*PassiveAggressiveClassifier)

// NewPassiveAggressiveClassifier は新しいPassiveAggressiveClassifierを作成
func NewPassiveAggressiveClassifier(options ...PassiveAggressiveOption) *PassiveAggressiveClassifier {
	pa := &PassiveAggressiveClassifier{
		state:        model.NewStateManager(),
		C:            1.0,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-3,
		shuffle:      true,
		randomState:  -1,
		loss:         "hinge",
	}

	for _, opt := range options {
		opt(pa)
	}

	return pa
}

// WithPAC は正則化パラメータを設定
func WithPAC(c float64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.C = c }
}

// WithPAMaxIter は最大エポック数を設定
func WithPAMaxIter(maxIter int) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.maxIter = maxIter }
}

// WithPATol は収束判定の許容誤差を設定
func WithPATol(tol float64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.tol = tol }
}

// WithPAFitIntercept は切片学習の有無を設定
func WithPAFitIntercept(fit bool) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.fitIntercept = fit }
}

// WithPALoss は損失関数を設定
func WithPALoss(loss string) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.loss = loss }
}

// WithPAAverage は平均化PAの有無を設定
func WithPAAverage(average bool) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.averagePA = average }
}

// WithPAShuffle はエポックごとのシャッフルの有無を設定
func WithPAShuffle(shuffle bool) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.shuffle = shuffle }
}

// WithPARandomState は乱数シードを設定
func WithPARandomState(seed int64) PassiveAggressiveOption {
	return func(pa *PassiveAggressiveClassifier) { pa.randomState = seed }
}

// Fit はバッチ学習でモデルを訓練
func (pa *PassiveAggressiveClassifier) Fit(X, y mat.Matrix) error {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	nSamples, nFeatures, err := checkXY("PassiveAggressiveClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := pa.validateParams(); err != nil {
		return err
	}
	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return errors.Wrapf(errors.ErrSingleClass, "PassiveAggressiveClassifier.Fit: got class %v", classes)
	}

	pa.reset()
	pa.classes_ = classes
	pa.nFeatures_ = nFeatures
	pa.initializeWeights()

	rows := toSparseRows(X)
	labels := columnLabels(y)
	rng := pa.newRand()
	order := make([]int, nSamples)
	for i := range order {
		order[i] = i
	}

	converged := false
	prevLoss := math.Inf(1)
	for epoch := 0; epoch < pa.maxIter; epoch++ {
		if pa.shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var epochLoss float64
		for _, i := range order {
			epochLoss += pa.updateWeights(rows[i], labels[i])
		}
		pa.nIter_++

		epochLoss /= float64(nSamples)
		if math.Abs(prevLoss-epochLoss) < pa.tol {
			converged = true
			break
		}
		prevLoss = epochLoss
	}

	if err := checkCoefficients("PassiveAggressiveClassifier.Fit", pa.coef_, pa.intercept_, pa.nIter_); err != nil {
		return err
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("PassiveAggressiveClassifier", pa.nIter_, "Maximum number of iterations reached"))
	}

	pa.state.SetDimensions(nFeatures, nSamples)
	pa.state.SetFitted()
	return nil
}

// PartialFit はミニバッチでモデルを逐次的に学習
// 初回呼び出しでは classes を指定するか、y に2クラス以上が含まれている必要がある。
func (pa *PassiveAggressiveClassifier) PartialFit(X, y mat.Matrix, classes []int) error {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	nSamples, nFeatures, err := checkXY("PassiveAggressiveClassifier.PartialFit", X, y)
	if err != nil {
		return err
	}

	if pa.coef_ == nil {
		if err := pa.validateParams(); err != nil {
			return err
		}
		if classes == nil {
			classes = uniqueClasses(y)
		}
		if len(classes) < 2 {
			return errors.Wrap(errors.ErrSingleClass, "PassiveAggressiveClassifier.PartialFit")
		}
		pa.classes_ = append([]int(nil), classes...)
		pa.nFeatures_ = nFeatures
		pa.initializeWeights()
	}

	if nFeatures != pa.nFeatures_ {
		return errors.NewDimensionError("PartialFit", pa.nFeatures_, nFeatures, 1)
	}

	rows := toSparseRows(X)
	labels := columnLabels(y)
	for i := range rows {
		if pa.classIndex(labels[i]) < 0 {
			return errors.NewValueError("PassiveAggressiveClassifier.PartialFit", "label not present in classes")
		}
		pa.updateWeights(rows[i], labels[i])
	}

	_, seen := pa.state.GetDimensions()
	pa.state.SetDimensions(nFeatures, seen+nSamples)
	pa.state.SetFitted()
	return nil
}

// updateWeights は単一サンプルで重みを更新し、更新前の損失の合計を返す
func (pa *PassiveAggressiveClassifier) updateWeights(x sparseRow, label int) float64 {
	classIdx := pa.classIndex(label)
	sq := x.squaredNorm()
	if pa.fitIntercept {
		sq++
	}

	var total float64
	for r := range pa.coef_ {
		target := -1.0
		if (len(pa.classes_) == 2 && classIdx == 1) || (len(pa.classes_) > 2 && r == classIdx) {
			target = 1.0
		}

		margin := target * (pa.intercept_[r] + x.dot(pa.coef_[r]))
		if margin >= 1 {
			continue
		}
		loss := 1 - margin
		if pa.loss == "squared_hinge" {
			total += 0.5 * loss * loss
		} else {
			total += loss
		}

		// PA-II の更新幅
		tau := target * loss / (sq + 1.0/(2.0*pa.C))

		for k, j := range x.idx {
			pa.coef_[r][j] += tau * x.val[k]
		}
		if pa.fitIntercept {
			pa.intercept_[r] += tau
		}
	}

	pa.t_++
	if pa.averagePA {
		// 全ステップにわたる重みの移動平均
		w := 1 / float64(pa.t_)
		for r := range pa.coef_ {
			for j := range pa.coef_[r] {
				pa.avgCoef_[r][j] += (pa.coef_[r][j] - pa.avgCoef_[r][j]) * w
			}
			pa.avgIntercept_[r] += (pa.intercept_[r] - pa.avgIntercept_[r]) * w
		}
	}
	return total
}

// weights は予測に使う重みを返す（平均化PAなら平均重み）
func (pa *PassiveAggressiveClassifier) weights() ([][]float64, []float64) {
	if pa.averagePA && pa.t_ > 0 {
		return pa.avgCoef_, pa.avgIntercept_
	}
	return pa.coef_, pa.intercept_
}

// DecisionFunction は各重みベクトルのマージンを返す
func (pa *PassiveAggressiveClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	pa.mu.RLock()
	defer pa.mu.RUnlock()

	if err := pa.state.RequireFitted("PassiveAggressiveClassifier", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := pa.state.RequireFeatures("PassiveAggressiveClassifier.Predict", cols); err != nil {
		return nil, err
	}
	coef, intercept := pa.weights()
	return decisionFunction(X, coef, intercept), nil
}

// Predict は入力データに対する予測を行う
func (pa *PassiveAggressiveClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := pa.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return labelsFromScores(scores, pa.Classes()), nil
}

// PredictProba はマージンから確率を近似する
func (pa *PassiveAggressiveClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := pa.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return probaFromScores(scores, len(pa.Classes())), nil
}

// Classes は学習時のクラスラベルを返す
func (pa *PassiveAggressiveClassifier) Classes() []int {
	pa.mu.RLock()
	defer pa.mu.RUnlock()
	return append([]int(nil), pa.classes_...)
}

// NIterations は実行されたエポック数を返す
func (pa *PassiveAggressiveClassifier) NIterations() int {
	pa.mu.RLock()
	defer pa.mu.RUnlock()
	return pa.nIter_
}

// GetParams はハイパーパラメータを返す
func (pa *PassiveAggressiveClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             pa.C,
		"fit_intercept": pa.fitIntercept,
		"max_iter":      pa.maxIter,
		"tol":           pa.tol,
		"shuffle":       pa.shuffle,
		"random_state":  pa.randomState,
		"average":       pa.averagePA,
		"loss":          pa.loss,
	}
}

// ExportWeights は学習済みの重みを返す（平均化PAでは平均重み）
func (pa *PassiveAggressiveClassifier) ExportWeights() (*model.ModelWeights, error) {
	pa.mu.RLock()
	defer pa.mu.RUnlock()

	if err := pa.state.RequireFitted("PassiveAggressiveClassifier", "ExportWeights"); err != nil {
		return nil, err
	}
	coef, intercept := pa.weights()
	return &model.ModelWeights{
		ModelType:    "PassiveAggressiveClassifier",
		Version:      weightsVersion,
		Coefficients: copyRows(coef),
		Intercepts:   append([]float64(nil), intercept...),
		Classes:      append([]int(nil), pa.classes_...),
		NFeatures:    pa.nFeatures_,
		Hyperparameters: map[string]float64{
			"C":             pa.C,
			"max_iter":      float64(pa.maxIter),
			"fit_intercept": boolParam(pa.fitIntercept),
		},
		IsFitted: true,
	}, nil
}

// ImportWeights は保存された重みから予測可能な状態を復元する
func (pa *PassiveAggressiveClassifier) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("PassiveAggressiveClassifier.ImportWeights", "nil weights")
	}
	if w.ModelType != "PassiveAggressiveClassifier" {
		return errors.NewModelError("PassiveAggressiveClassifier.ImportWeights", "model type mismatch: "+w.ModelType, nil)
	}
	if err := w.Validate(); err != nil {
		return errors.NewModelError("PassiveAggressiveClassifier.ImportWeights", "invalid weights", err)
	}
	if len(w.Coefficients) != weightRows(len(w.Classes)) {
		return errors.NewModelError("PassiveAggressiveClassifier.ImportWeights", "coefficient rows do not match class count", nil)
	}

	pa.mu.Lock()
	defer pa.mu.Unlock()

	pa.reset()
	pa.averagePA = false
	pa.coef_ = copyRows(w.Coefficients)
	pa.intercept_ = append([]float64(nil), w.Intercepts...)
	pa.classes_ = append([]int(nil), w.Classes...)
	pa.nFeatures_ = w.NFeatures
	if c, ok := w.Hyperparameters["C"]; ok {
		pa.C = c
	}
	if fi, ok := w.Hyperparameters["fit_intercept"]; ok {
		pa.fitIntercept = fi != 0
	}

	pa.state.SetDimensions(w.NFeatures, 0)
	pa.state.SetFitted()
	return nil
}

// 内部ヘルパーメソッド

func (pa *PassiveAggressiveClassifier) validateParams() error {
	if pa.C <= 0 {
		return errors.NewValidationError("C", "must be positive", pa.C)
	}
	if pa.loss != "hinge" && pa.loss != "squared_hinge" {
		return errors.NewValidationError("loss", "must be \"hinge\" or \"squared_hinge\"", pa.loss)
	}
	return nil
}

func (pa *PassiveAggressiveClassifier) newRand() *rand.Rand {
	if pa.randomState >= 0 {
		return rand.New(rand.NewSource(pa.randomState))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// initializeWeights は重みをゼロで初期化
func (pa *PassiveAggressiveClassifier) initializeWeights() {
	nRows := weightRows(len(pa.classes_))
	pa.coef_ = make([][]float64, nRows)
	pa.avgCoef_ = make([][]float64, nRows)
	for r := 0; r < nRows; r++ {
		pa.coef_[r] = make([]float64, pa.nFeatures_)
		pa.avgCoef_[r] = make([]float64, pa.nFeatures_)
	}
	pa.intercept_ = make([]float64, nRows)
	pa.avgIntercept_ = make([]float64, nRows)
}

// classIndex はクラス値からインデックスを取得
func (pa *PassiveAggressiveClassifier) classIndex(class int) int {
	for i, c := range pa.classes_ {
		if c == class {
			return i
		}
	}
	return -1
}

// reset は内部状態をリセット
func (pa *PassiveAggressiveClassifier) reset() {
	pa.coef_ = nil
	pa.intercept_ = nil
	pa.avgCoef_ = nil
	pa.avgIntercept_ = nil
	pa.classes_ = nil
	pa.nIter_ = 0
	pa.t_ = 0
	pa.state.Reset()
}

func columnLabels(y mat.Matrix) []int {
	n, _ := y.Dims()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = int(y.At(i, 0))
	}
	return labels
}

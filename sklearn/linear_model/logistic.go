package linear_model

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// LogisticRegression implements L2-regularized logistic regression fitted
// with L-BFGS. Multiclass problems use one-vs-rest.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)
	mu    sync.RWMutex

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  int64   // Random seed, negative means nondeterministic
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance on the largest gradient component

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []int
	nClasses_  int
	nFeatures_ int
	nIter_     []int // Actual iterations per weight row

	rand *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		randomState:  -1,
		maxIter:      100,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}

	lr.resetRand()
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

func (lr *LogisticRegression) resetRand() {
	if lr.randomState >= 0 {
		lr.rand = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rand = rand.New(rand.NewSource(rand.Int63()))
	}
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	nSamples, nFeatures, err := checkXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be \"l2\" or \"none\"", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return errors.Wrapf(errors.ErrSingleClass, "LogisticRegression.Fit: got class %v", classes)
	}

	lr.state.Reset()
	lr.classes_ = classes
	lr.nClasses_ = len(classes)
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	rows := toSparseRows(X)
	for _, row := range rows {
		if err := errors.CheckNumericalStability("LogisticRegression.Fit", row.val, 0); err != nil {
			return err
		}
	}
	converged := true
	for r := range lr.coef_ {
		ok, err := lr.fitRow(rows, binaryTargets(y, lr.classes_, r), r)
		if err != nil {
			return err
		}
		if !ok {
			converged = false
		}
	}

	if err := checkCoefficients("LogisticRegression.Fit", lr.coef_, lr.intercept_, lr.maxIter); err != nil {
		return err
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	lr.resetRand()
	nRows := weightRows(lr.nClasses_)
	lr.coef_ = make([][]float64, nRows)
	for r := range lr.coef_ {
		lr.coef_[r] = make([]float64, nFeatures)
		for j := range lr.coef_[r] {
			lr.coef_[r][j] = lr.rand.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nRows)
	lr.nIter_ = make([]int, nRows)
}

// fitRow fits one weight row against {0,1} targets with L-BFGS. The
// objective is the mean log loss plus ||w||²/(2·C·n), the same minimizer as
// C·Σloss + ||w||²/2. It reports whether the gradient fell below tol.
func (lr *LogisticRegression) fitRow(rows []sparseRow, targets []float64, r int) (bool, error) {
	nFeatures := len(lr.coef_[r])
	n := float64(len(rows))
	alpha := 0.0
	if lr.penalty == "l2" {
		alpha = 1.0 / (lr.C * n)
	}

	// x holds the weights followed by the intercept when it is fitted.
	dim := nFeatures
	if lr.fitIntercept {
		dim++
	}
	split := func(x []float64) ([]float64, float64) {
		if lr.fitIntercept {
			return x[:nFeatures], x[nFeatures]
		}
		return x[:nFeatures], 0
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w, b := split(x)
			loss := 0.0
			for i, row := range rows {
				z := b + row.dot(w)
				loss += softplus(z) - targets[i]*z
			}
			return loss/n + 0.5*alpha*floats.Dot(w, w)
		},
		Grad: func(grad, x []float64) {
			w, b := split(x)
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range rows {
				residual := (sigmoid(b+row.dot(w)) - targets[i]) / n
				for k, j := range row.idx {
					grad[j] += residual * row.val[k]
				}
				if lr.fitIntercept {
					grad[nFeatures] += residual
				}
			}
			if alpha > 0 {
				floats.AddScaled(grad[:nFeatures], alpha, w)
			}
		},
	}

	x0 := make([]float64, dim)
	copy(x0, lr.coef_[r])
	if lr.fitIntercept {
		x0[nFeatures] = lr.intercept_[r]
	}
	settings := &optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return false, errors.NewModelError("LogisticRegression.Fit", "optimization", err)
	}

	// An early stop (iteration limit, failed line search) still leaves the
	// best point found; checkCoefficients rejects it if it is not finite.
	if err := errors.CheckScalar("LogisticRegression.Fit", result.F, result.MajorIterations); err != nil {
		return false, err
	}
	w, b := split(result.X)
	copy(lr.coef_[r], w)
	lr.intercept_[r] = b
	lr.nIter_[r] = result.MajorIterations
	return err == nil && !result.Status.Early(), nil
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return labelsFromScores(scores, lr.Classes()), nil
}

// PredictProba returns probability estimates for each class
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return probaFromScores(scores, len(lr.Classes())), nil
}

// DecisionFunction returns the linear score of every weight row
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()

	if err := lr.state.RequireFitted("LogisticRegression", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression.Predict", cols); err != nil {
		return nil, err
	}
	return decisionFunction(X, lr.coef_, lr.intercept_), nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the class labels seen during Fit
func (lr *LogisticRegression) Classes() []int {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	return append([]int(nil), lr.classes_...)
}

// NIter returns the iterations run for each weight row
func (lr *LogisticRegression) NIter() []int {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	return append([]int(nil), lr.nIter_...)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		ok := true
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "random_state":
			lr.randomState, ok = value.(int64)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// ExportWeights returns a snapshot of the fitted model
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()

	if err := lr.state.RequireFitted("LogisticRegression", "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:    "LogisticRegression",
		Version:      weightsVersion,
		Coefficients: copyRows(lr.coef_),
		Intercepts:   append([]float64(nil), lr.intercept_...),
		Classes:      append([]int(nil), lr.classes_...),
		NFeatures:    lr.nFeatures_,
		Hyperparameters: map[string]float64{
			"C":             lr.C,
			"max_iter":      float64(lr.maxIter),
			"tol":           lr.tol,
			"fit_intercept": boolParam(lr.fitIntercept),
			"l2":            boolParam(lr.penalty == "l2"),
		},
		IsFitted: true,
	}, nil
}

// ImportWeights restores a fitted model from a snapshot
func (lr *LogisticRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "nil weights")
	}
	if w.ModelType != "LogisticRegression" {
		return errors.NewModelError("LogisticRegression.ImportWeights", "model type mismatch: "+w.ModelType, nil)
	}
	if err := w.Validate(); err != nil {
		return errors.NewModelError("LogisticRegression.ImportWeights", "invalid weights", err)
	}
	if len(w.Coefficients) != weightRows(len(w.Classes)) {
		return errors.NewModelError("LogisticRegression.ImportWeights", "coefficient rows do not match class count", nil)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	lr.coef_ = copyRows(w.Coefficients)
	lr.intercept_ = append([]float64(nil), w.Intercepts...)
	lr.classes_ = append([]int(nil), w.Classes...)
	lr.nClasses_ = len(w.Classes)
	lr.nFeatures_ = w.NFeatures
	lr.nIter_ = make([]int, len(w.Coefficients))
	if c, ok := w.Hyperparameters["C"]; ok {
		lr.C = c
	}
	if it, ok := w.Hyperparameters["max_iter"]; ok {
		lr.maxIter = int(it)
	}
	if tol, ok := w.Hyperparameters["tol"]; ok {
		lr.tol = tol
	}
	if fi, ok := w.Hyperparameters["fit_intercept"]; ok {
		lr.fitIntercept = fi != 0
	}
	if l2, ok := w.Hyperparameters["l2"]; ok && l2 == 0 {
		lr.penalty = "none"
	}

	lr.state.Reset()
	lr.state.SetDimensions(w.NFeatures, 0)
	lr.state.SetFitted()
	return nil
}

package model

import (
	"fmt"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
// 線形モデルでは Coefficients がクラスごとの係数、Naive Bayes では
// クラスごとの特徴量対数確率を表す。
type ModelWeights struct {
	// ModelType はモデルの種類（MultinomialNB, LogisticRegression等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は重み係数（行 x 特徴数）
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts は切片、または各クラスの事前対数確率
	Intercepts []float64 `json:"intercepts"`

	// Classes は学習時に観測したクラスラベル
	Classes []int `json:"classes"`

	// NFeatures は特徴量の数
	NFeatures int `json:"n_features"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]float64 `json:"hyperparameters"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return fmt.Errorf("model_type is required")
	}

	if mw.Version == "" {
		return fmt.Errorf("version is required")
	}

	if !mw.IsFitted {
		return fmt.Errorf("model %s is not fitted", mw.ModelType)
	}

	if len(mw.Coefficients) == 0 || len(mw.Classes) < 2 {
		return fmt.Errorf("fitted model must have coefficients and at least two classes")
	}

	for i, row := range mw.Coefficients {
		if len(row) != mw.NFeatures {
			return fmt.Errorf("coefficient row %d has %d features, expected %d", i, len(row), mw.NFeatures)
		}
	}

	if len(mw.Intercepts) != len(mw.Coefficients) {
		return fmt.Errorf("expected %d intercepts, got %d", len(mw.Coefficients), len(mw.Intercepts))
	}

	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		NFeatures:       mw.NFeatures,
		IsFitted:        mw.IsFitted,
		Coefficients:    make([][]float64, len(mw.Coefficients)),
		Intercepts:      append([]float64(nil), mw.Intercepts...),
		Classes:         append([]int(nil), mw.Classes...),
		Hyperparameters: make(map[string]float64, len(mw.Hyperparameters)),
	}

	for i, row := range mw.Coefficients {
		clone.Coefficients[i] = append([]float64(nil), row...)
	}

	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}

	return clone
}

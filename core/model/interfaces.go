// Package model provides the interfaces shared by every trainer the search
// engine can pick, plus state and persistence helpers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier combines interfaces for classification models.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns probability estimates for each class.
	// Columns follow the order of Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// WeightsPersistable is implemented by models whose learned state can be
// exported to and restored from a ModelWeights snapshot.
type WeightsPersistable interface {
	// ExportWeights returns a snapshot of the fitted model.
	ExportWeights() (*ModelWeights, error)

	// ImportWeights restores a fitted model from a snapshot.
	ImportWeights(w *ModelWeights) error
}

// PersistableClassifier is a classifier that can be saved inside an artifact.
type PersistableClassifier interface {
	Classifier
	ParameterGetter
	WeightsPersistable
}

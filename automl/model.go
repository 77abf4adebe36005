package automl

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/dataset"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/preprocessing"
)

// positiveClass is the integer encoding of Label == true.
const positiveClass = 1

const probEpsilon = 1e-15

// Model is a trained pipeline: a fitted vectorizer and classifier plus the
// schema of the data it was trained on.
type Model struct {
	Trainer string
	Params  map[string]float64
	Schema  Schema

	vectorizer *preprocessing.TextVectorizer
	classifier model.PersistableClassifier
	positive   int
}

func newModel(trainer string, params map[string]float64, vec *preprocessing.TextVectorizer, clf model.PersistableClassifier) (*Model, error) {
	pos := -1
	for i, c := range clf.Classes() {
		if c == positiveClass {
			pos = i
		}
	}
	if pos < 0 || len(clf.Classes()) != 2 {
		return nil, errors.NewValueError("automl.Model", "classifier must be trained on both labels")
	}
	return &Model{
		Trainer:    trainer,
		Params:     params,
		Schema:     SentimentSchema(),
		vectorizer: vec,
		classifier: clf,
		positive:   pos,
	}, nil
}

// Featurizer names the text featurization the model uses.
func (m *Model) Featurizer() string {
	return m.vectorizer.Name()
}

// NFeatures returns the vocabulary size.
func (m *Model) NFeatures() int {
	return m.vectorizer.NFeatures()
}

// Predict scores one sample. Its label is ignored.
func (m *Model) Predict(s dataset.Sample) (Prediction, error) {
	preds, err := m.PredictBatch([]dataset.Sample{s})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch scores samples in order.
func (m *Model) PredictBatch(samples []dataset.Sample) ([]Prediction, error) {
	X, err := m.vectorizer.Transform(dataset.Texts(samples))
	if err != nil {
		return nil, errors.Wrap(err, "automl: featurize")
	}
	labels, err := m.classifier.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "automl: predict")
	}
	proba, err := m.classifier.PredictProba(X)
	if err != nil {
		return nil, errors.Wrap(err, "automl: predict proba")
	}

	out := make([]Prediction, len(samples))
	for i := range out {
		p := proba.At(i, m.positive)
		out[i] = Prediction{
			Label:       int(labels.At(i, 0)) == positiveClass,
			Probability: p,
			Score:       logit(p),
		}
	}
	return out, nil
}

// Predict scores one sample with m.
func Predict(m *Model, s dataset.Sample) (Prediction, error) {
	if m == nil {
		return Prediction{}, errors.NewNotFittedError("automl.Model", "Predict")
	}
	return m.Predict(s)
}

func logit(p float64) float64 {
	p = math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
	return math.Log(p / (1 - p))
}

// labelMatrix encodes sample labels as a column vector of 0/1.
func labelMatrix(samples []dataset.Sample) *mat.Dense {
	return mat.NewDense(len(samples), 1, dataset.Labels(samples))
}

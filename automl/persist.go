package automl

import (
	"time"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/preprocessing"
)

const (
	artifactMagic   = "sentiml-model"
	artifactVersion = 1
)

// artifact is the gob payload written by Save.
type artifact struct {
	Magic      string
	Version    int
	Schema     Schema
	Trainer    string
	Params     map[string]float64
	Vectorizer preprocessing.TextVectorizer
	Weights    model.ModelWeights
	SavedAt    time.Time
}

// Save writes m to path, replacing any existing file only once the new
// artifact is fully written.
func Save(m *Model, path string) error {
	if m == nil {
		return errors.NewNotFittedError("automl.Model", "Save")
	}
	w, err := m.classifier.ExportWeights()
	if err != nil {
		return errors.Wrap(err, "automl: export weights")
	}
	a := artifact{
		Magic:      artifactMagic,
		Version:    artifactVersion,
		Schema:     m.Schema,
		Trainer:    m.Trainer,
		Params:     m.Params,
		Vectorizer: *m.vectorizer,
		Weights:    *w,
		SavedAt:    time.Now().UTC(),
	}
	return model.SaveModel(&a, path)
}

// Load reads a model saved by Save and checks it was trained against
// expected. Every failure is a ModelLoadError.
func Load(path string, expected Schema) (*Model, error) {
	var a artifact
	if err := model.LoadModel(&a, path); err != nil {
		var ioErr *errors.IOError
		if errors.As(err, &ioErr) {
			return nil, errors.NewModelLoadError(path, "artifact is missing or unreadable", err)
		}
		return nil, errors.NewModelLoadError(path, "artifact is corrupt", err)
	}

	if a.Magic != artifactMagic {
		return nil, errors.NewModelLoadError(path, "not a model artifact", nil)
	}
	if a.Version != artifactVersion {
		return nil, errors.NewModelLoadError(path, "unsupported artifact version", errors.Newf("version %d", a.Version))
	}
	if !a.Schema.Equal(expected) {
		return nil, errors.NewModelLoadError(path, "schema mismatch",
			errors.Newf("artifact schema %s, expected %s", a.Schema, expected))
	}

	factory, ok := builtinFactory(a.Trainer)
	if !ok {
		return nil, errors.NewModelLoadError(path, "unknown trainer", errors.Newf("trainer %q", a.Trainer))
	}
	vec := a.Vectorizer
	if !vec.IsFitted() || vec.NFeatures() != a.Weights.NFeatures {
		return nil, errors.NewModelLoadError(path, "featurizer does not match estimator",
			errors.Newf("vocabulary %d, estimator features %d", vec.NFeatures(), a.Weights.NFeatures))
	}

	clf := factory(a.Params, 0)
	if err := clf.ImportWeights(&a.Weights); err != nil {
		return nil, errors.NewModelLoadError(path, "invalid estimator weights", err)
	}
	m, err := newModel(a.Trainer, a.Params, &vec, clf)
	if err != nil {
		return nil, errors.NewModelLoadError(path, "invalid estimator classes", err)
	}
	m.Schema = a.Schema
	return m, nil
}

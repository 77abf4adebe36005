package automl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/sentiml/core/model"
	"github.com/YuminosukeSato/sentiml/preprocessing"
	"github.com/YuminosukeSato/sentiml/sklearn/linear_model"
	"github.com/YuminosukeSato/sentiml/sklearn/naive_bayes"
)

// Built-in trainer names.
const (
	TrainerNaiveBayes         = "MultinomialNB"
	TrainerLogisticRegression = "LogisticRegression"
	TrainerPassiveAggressive  = "PassiveAggressive"
)

// TrainerFactory builds an unfitted classifier for one point of a grid.
type TrainerFactory func(params map[string]float64, seed int64) model.PersistableClassifier

// TrainerSpec is a trainer and the hyperparameter grid the search tries.
type TrainerSpec struct {
	Name string
	Grid []map[string]float64
	New  TrainerFactory
}

// DefaultTrainers returns the built-in trainers in search order.
func DefaultTrainers() []TrainerSpec {
	return []TrainerSpec{
		{
			Name: TrainerNaiveBayes,
			Grid: []map[string]float64{{"alpha": 1}, {"alpha": 0.5}, {"alpha": 0.1}},
			New:  newNaiveBayes,
		},
		{
			Name: TrainerLogisticRegression,
			Grid: []map[string]float64{{"C": 1}, {"C": 10}, {"C": 100}},
			New:  newLogisticRegression,
		},
		{
			Name: TrainerPassiveAggressive,
			Grid: []map[string]float64{
				{"C": 1, "average": 1},
				{"C": 0.1, "average": 1},
				{"C": 1, "average": 0},
			},
			New: newPassiveAggressive,
		},
	}
}

func newNaiveBayes(params map[string]float64, _ int64) model.PersistableClassifier {
	return naive_bayes.NewMultinomialNB(naive_bayes.WithAlpha(param(params, "alpha", 1)))
}

func newLogisticRegression(params map[string]float64, seed int64) model.PersistableClassifier {
	return linear_model.NewLogisticRegression(
		linear_model.WithLRC(param(params, "C", 1)),
		linear_model.WithLRMaxIter(int(param(params, "max_iter", 200))),
		linear_model.WithLRRandomState(seed),
	)
}

func newPassiveAggressive(params map[string]float64, seed int64) model.PersistableClassifier {
	return linear_model.NewPassiveAggressiveClassifier(
		linear_model.WithPAC(param(params, "C", 1)),
		linear_model.WithPAAverage(param(params, "average", 1) != 0),
		linear_model.WithPAMaxIter(int(param(params, "max_iter", 100))),
		linear_model.WithPARandomState(seed),
	)
}

// builtinFactory returns the factory used to rebuild a persisted classifier.
func builtinFactory(name string) (TrainerFactory, bool) {
	for _, spec := range DefaultTrainers() {
		if spec.Name == name {
			return spec.New, true
		}
	}
	return nil, false
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// FormatParams renders params as "k=v" pairs sorted by key.
func FormatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// featurizer is one text featurization variant.
type featurizer struct {
	weighting preprocessing.Weighting
	bigrams   bool
	stemming  bool
}

// featurizers is ordered so that the cheapest, usually strong variants run
// first when the budget is short.
var featurizers = []featurizer{
	{weighting: preprocessing.WeightTFIDF},
	{weighting: preprocessing.WeightCount},
	{weighting: preprocessing.WeightTFIDF, bigrams: true},
	{weighting: preprocessing.WeightTFIDF, stemming: true},
	{weighting: preprocessing.WeightCount, bigrams: true},
	{weighting: preprocessing.WeightCount, stemming: true},
	{weighting: preprocessing.WeightTFIDF, bigrams: true, stemming: true},
	{weighting: preprocessing.WeightCount, bigrams: true, stemming: true},
}

func (f featurizer) vectorizer(maxFeatures, workers int) *preprocessing.TextVectorizer {
	return preprocessing.NewTextVectorizer(
		preprocessing.WithWeighting(f.weighting),
		preprocessing.WithBigrams(f.bigrams),
		preprocessing.WithStemming(f.stemming),
		preprocessing.WithMaxFeatures(maxFeatures),
		preprocessing.WithWorkers(workers),
	)
}

// candidate is one pipeline the search can run.
type candidate struct {
	trainer    TrainerSpec
	params     map[string]float64
	featurizer featurizer
}

// candidates expands every trainer over featurizers x grid and interleaves
// the per-trainer lists round-robin, so a short budget still samples each
// trainer.
func candidates(trainers []TrainerSpec) []candidate {
	perTrainer := make([][]candidate, len(trainers))
	longest := 0
	for t, spec := range trainers {
		for _, f := range featurizers {
			for _, p := range spec.Grid {
				perTrainer[t] = append(perTrainer[t], candidate{trainer: spec, params: p, featurizer: f})
			}
		}
		if len(perTrainer[t]) > longest {
			longest = len(perTrainer[t])
		}
	}

	var out []candidate
	for i := 0; i < longest; i++ {
		for t := range perTrainer {
			if i < len(perTrainer[t]) {
				out = append(out, perTrainer[t][i])
			}
		}
	}
	return out
}

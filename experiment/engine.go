package experiment

import (
	"context"
	"time"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/dataset"
)

// Engine is the search, evaluation, persistence and inference backend the
// orchestrator drives.
type Engine interface {
	// Search blocks until budget is spent or the engine stops on its own,
	// reporting each finished trial to sink one call at a time.
	Search(ctx context.Context, train []dataset.Sample, budget time.Duration, sink automl.ProgressSink) ([]automl.TrialResult, error)
	Evaluate(m *automl.Model, test []dataset.Sample) (automl.Metrics, error)
	Save(m *automl.Model, path string) error
	Load(path string, expected automl.Schema) (*automl.Model, error)
	Predict(m *automl.Model, s dataset.Sample) (automl.Prediction, error)
}

// AutoMLEngine is the Engine backed by the automl package.
type AutoMLEngine struct {
	searcher *automl.Searcher
}

// NewAutoMLEngine creates an engine whose searcher uses opts.
func NewAutoMLEngine(opts ...automl.SearchOption) *AutoMLEngine {
	return &AutoMLEngine{searcher: automl.NewSearcher(opts...)}
}

// EngineFromConfig maps the search fields of cfg to searcher options.
func EngineFromConfig(cfg Config, extra ...automl.SearchOption) *AutoMLEngine {
	opts := []automl.SearchOption{
		automl.WithValidationFraction(cfg.ValidationFraction),
		automl.WithSeed(cfg.Seed),
		automl.WithParallelism(cfg.Parallelism),
		automl.WithMaxTrials(cfg.MaxTrials),
	}
	if cfg.MaxFeatures > 0 {
		opts = append(opts, automl.WithMaxFeatures(cfg.MaxFeatures))
	}
	return NewAutoMLEngine(append(opts, extra...)...)
}

var _ Engine = (*AutoMLEngine)(nil)

// Search runs the searcher with budget as the context deadline.
func (e *AutoMLEngine) Search(ctx context.Context, train []dataset.Sample, budget time.Duration, sink automl.ProgressSink) ([]automl.TrialResult, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return e.searcher.Search(ctx, train, sink)
}

func (e *AutoMLEngine) Evaluate(m *automl.Model, test []dataset.Sample) (automl.Metrics, error) {
	return automl.Evaluate(m, test)
}

func (e *AutoMLEngine) Save(m *automl.Model, path string) error {
	return automl.Save(m, path)
}

func (e *AutoMLEngine) Load(path string, expected automl.Schema) (*automl.Model, error) {
	return automl.Load(path, expected)
}

func (e *AutoMLEngine) Predict(m *automl.Model, s dataset.Sample) (automl.Prediction, error) {
	return automl.Predict(m, s)
}

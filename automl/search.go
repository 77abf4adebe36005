package automl

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/YuminosukeSato/sentiml/dataset"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/pkg/log"
)

// Searcher runs a time-boxed search over candidate pipelines.
type Searcher struct {
	validationFraction float64
	seed               int64
	parallelism        int
	maxFeatures        int
	maxTrials          int
	trainers           []TrainerSpec
	logger             log.Logger
}

// SearchOption configures a Searcher.
type SearchOption func(*Searcher)

// WithValidationFraction sets the share of training samples held out to
// score each trial. Default 0.2.
func WithValidationFraction(f float64) SearchOption {
	return func(s *Searcher) { s.validationFraction = f }
}

// WithSeed sets the seed of the fit/validation split and of the trainers.
func WithSeed(seed int64) SearchOption {
	return func(s *Searcher) { s.seed = seed }
}

// WithParallelism sets how many trials run at once. 0 means GOMAXPROCS.
func WithParallelism(n int) SearchOption {
	return func(s *Searcher) { s.parallelism = n }
}

// WithMaxFeatures caps the vocabulary of every featurizer.
func WithMaxFeatures(n int) SearchOption {
	return func(s *Searcher) { s.maxFeatures = n }
}

// WithMaxTrials stops the search after n trials. 0 means the whole grid.
func WithMaxTrials(n int) SearchOption {
	return func(s *Searcher) { s.maxTrials = n }
}

// WithTrainers replaces the trainers the search draws from.
func WithTrainers(specs ...TrainerSpec) SearchOption {
	return func(s *Searcher) { s.trainers = specs }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) SearchOption {
	return func(s *Searcher) { s.logger = l }
}

// NewSearcher creates a Searcher over DefaultTrainers.
func NewSearcher(opts ...SearchOption) *Searcher {
	s := &Searcher{
		validationFraction: 0.2,
		seed:               1,
		maxFeatures:        5000,
		trainers:           DefaultTrainers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelism <= 0 {
		s.parallelism = runtime.GOMAXPROCS(0)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("automl")
	}
	return s
}

type split struct {
	fit   []dataset.Sample
	valid []dataset.Sample
}

// Search trains and scores candidates until the grid is exhausted or ctx is
// done, whichever comes first. The deadline of ctx is the time budget.
//
// Trials already running when ctx is done are allowed to finish, and the
// first candidate is always dispatched. Every finished trial is passed to
// sink from a single goroutine, in completion order, with a 1-based index.
// A trial that fails or panics is returned with a TrialFailure in Err and
// does not stop the search.
func (s *Searcher) Search(ctx context.Context, train []dataset.Sample, sink ProgressSink) ([]TrialResult, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	sp, err := s.split(train)
	if err != nil {
		return nil, err
	}

	cands := candidates(s.trainers)
	if s.maxTrials > 0 && len(cands) > s.maxTrials {
		cands = cands[:s.maxTrials]
	}

	logger := s.logger.With(log.OperationKey, log.OperationSearch)
	logger.Info("Search started",
		log.SamplesKey, len(train),
		"data.fit_samples", len(sp.fit),
		"data.validation_samples", len(sp.valid),
		"search.candidates", len(cands),
		"search.parallelism", s.parallelism,
	)
	start := time.Now()

	jobs := make(chan candidate)
	results := make(chan TrialResult)

	go func() {
		defer close(jobs)
		for i, c := range cands {
			if i > 0 && ctx.Err() != nil {
				return
			}
			if i == 0 {
				jobs <- c
				continue
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- c:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < s.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results <- s.runTrial(c, sp)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var out []TrialResult
	failed := 0
	for r := range results {
		r.Index = len(out) + 1
		out = append(out, r)
		if r.Failed() {
			failed++
			logger.Warn("Trial failed",
				log.TrialKey, r.Index,
				log.TrainerKey, r.Trainer,
				log.ErrorTypeKey, "TrialFailure",
				"error", r.Err.Error(),
			)
		} else {
			logger.Debug("Trial finished",
				log.TrialKey, r.Index,
				log.TrainerKey, r.Trainer,
				log.HyperParamsKey, FormatParams(r.Params),
				log.AccuracyKey, r.Metrics.Accuracy(),
				log.DurationSecondsKey, r.Elapsed.Seconds(),
			)
		}
		if sink != nil {
			sink.OnTrialComplete(r.Index, r)
		}
	}

	logger.Info("Search finished",
		log.TrialsKey, len(out),
		log.FailedTrialsKey, failed,
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)
	return out, nil
}

func (s *Searcher) validate() error {
	if s.validationFraction <= 0 || s.validationFraction >= 1 {
		return errors.NewValidationError("validation_fraction", "must be in (0, 1)", s.validationFraction)
	}
	if len(s.trainers) == 0 {
		return errors.NewValidationError("trainers", "at least one trainer is required", 0)
	}
	return nil
}

// split holds out validationFraction of each label, shuffled with the seed.
// Each label keeps at least one sample on the fit side.
func (s *Searcher) split(samples []dataset.Sample) (split, error) {
	if len(samples) == 0 {
		return split{}, errors.Wrap(errors.ErrEmptyData, "automl.Search")
	}

	var pos, neg []int
	for i, smp := range samples {
		if smp.Label {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return split{}, errors.Wrap(errors.ErrSingleClass, "automl.Search")
	}

	rng := rand.New(rand.NewSource(s.seed))
	var sp split
	for _, group := range [][]int{pos, neg} {
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		nValid := int(math.Round(s.validationFraction * float64(len(group))))
		if nValid > len(group)-1 {
			nValid = len(group) - 1
		}
		for k, idx := range group {
			if k < nValid {
				sp.valid = append(sp.valid, samples[idx])
			} else {
				sp.fit = append(sp.fit, samples[idx])
			}
		}
	}
	if len(sp.valid) == 0 {
		return split{}, errors.NewValueError("automl.Search", "not enough samples to hold out a validation set")
	}
	return sp, nil
}

// runTrial fits and scores one candidate. It never panics.
func (s *Searcher) runTrial(c candidate, sp split) TrialResult {
	res := TrialResult{
		Trainer:    c.trainer.Name,
		Featurizer: c.featurizer.vectorizer(0, 1).Name(),
		Params:     c.params,
	}
	start := time.Now()

	err := errors.SafeExecute("automl.trial."+c.trainer.Name, func() error {
		m, err := s.fit(c, sp.fit)
		if err != nil {
			return err
		}
		metrics, err := Evaluate(m, sp.valid)
		if err != nil {
			return err
		}
		res.Model = m
		res.Metrics = metrics
		return nil
	})
	res.Elapsed = time.Since(start)

	if err != nil {
		res.Err = errors.NewTrialFailure(c.trainer.Name, err)
		res.Model = nil
		res.Metrics = Metrics{Task: TaskBinary}
	}
	return res
}

// fit trains the candidate pipeline on samples.
func (s *Searcher) fit(c candidate, samples []dataset.Sample) (*Model, error) {
	// Trials already run in parallel, so each vectorizer transforms serially.
	vec := c.featurizer.vectorizer(s.maxFeatures, 1)
	X, err := vec.FitTransform(dataset.Texts(samples))
	if err != nil {
		return nil, err
	}

	clf := c.trainer.New(c.params, s.seed)
	if clf == nil {
		return nil, errors.Newf("trainer %s returned no classifier", c.trainer.Name)
	}
	if err := clf.Fit(X, labelMatrix(samples)); err != nil {
		return nil, err
	}
	return newModel(c.trainer.Name, c.params, vec, clf)
}

// Fit trains a single pipeline on all samples without searching. It is used
// to refit a chosen configuration and in tests.
func Fit(trainer TrainerSpec, params map[string]float64, samples []dataset.Sample, seed int64) (*Model, error) {
	s := NewSearcher(WithSeed(seed))
	c := candidate{trainer: trainer, params: params, featurizer: featurizers[0]}
	return s.fit(c, samples)
}

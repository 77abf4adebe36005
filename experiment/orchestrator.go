package experiment

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/dataset"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/pkg/log"
	"github.com/YuminosukeSato/sentiml/report"
)

// Orchestrator runs experiments for one Config.
type Orchestrator struct {
	cfg      Config
	engine   Engine
	reporter *report.Reporter
	logger   log.Logger
	runID    string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter sets the console reporter. Default prints to stdout.
func WithReporter(r *report.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithLogger sets the logger. The run id is attached to it.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// New validates cfg and creates an Orchestrator.
func New(cfg Config, engine Engine, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, errors.NewValueError("experiment.New", "engine must not be nil")
	}
	o := &Orchestrator{cfg: cfg, engine: engine}
	for _, opt := range opts {
		opt(o)
	}
	if o.reporter == nil {
		o.reporter = report.New(os.Stdout, report.WithWidth(cfg.TableWidth))
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("experiment")
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	o.logger = o.logger.With(log.RunIDKey, o.runID)
	return o, nil
}

// RunID identifies this orchestrator's runs in logs.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// RunExperiment loads the data, searches for the best pipeline within the
// time budget, evaluates it on the test data, saves it to the model path and
// returns the chosen trial.
//
// I/O, schema and selection errors abort the run before anything is saved.
// Failed trials are reported and skipped.
func (o *Orchestrator) RunExperiment(ctx context.Context) (automl.TrialResult, error) {
	start := time.Now()
	logger := o.logger

	train, err := o.load(o.cfg.TrainDataPath)
	if err != nil {
		return automl.TrialResult{}, err
	}
	test, err := o.load(o.cfg.TestDataPath)
	if err != nil {
		return automl.TrialResult{}, err
	}

	if err := o.reporter.PrintPreview(train, o.cfg.PreviewRows); err != nil {
		return automl.TrialResult{}, err
	}

	var chart *TrialChart
	var recorder report.TrialRecorder
	if o.cfg.ChartPath != "" {
		chart = NewTrialChart()
		recorder = chart
	}
	progress := report.NewProgressHandler(o.reporter, recorder)

	if err := o.reporter.Banner(
		"=============== Running AutoML experiment ===============",
		fmt.Sprintf("Running AutoML binary classification experiment for %d seconds...", o.cfg.TimeBudgetSeconds),
	); err != nil {
		return automl.TrialResult{}, err
	}
	logger.Info("Search started",
		log.OperationKey, log.OperationSearch,
		log.BudgetSecondsKey, o.cfg.TimeBudgetSeconds,
		log.SamplesKey, len(train),
	)
	results, err := o.engine.Search(ctx, train, o.cfg.TimeBudget(), progress)
	if err != nil {
		return automl.TrialResult{}, err
	}
	if err := progress.Err(); err != nil {
		return automl.TrialResult{}, err
	}

	best, err := SelectBest(results)
	if err != nil {
		return automl.TrialResult{}, err
	}
	logger.Info("Best trial selected",
		log.TrialKey, best.Index,
		log.TrainerKey, best.Trainer,
		log.HyperParamsKey, automl.FormatParams(best.Params),
		log.AccuracyKey, best.Metrics.Accuracy(),
		log.TrialsKey, len(results),
	)
	if err := o.reporter.PrintBest(best); err != nil {
		return automl.TrialResult{}, err
	}

	metrics, err := o.engine.Evaluate(best.Model, test)
	if err != nil {
		return automl.TrialResult{}, err
	}
	logger.Info("Best model evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseTesting,
		log.AccuracyKey, metrics.Accuracy(),
	)
	if err := o.reporter.PrintMetrics(best.Trainer, metrics); err != nil {
		return automl.TrialResult{}, err
	}

	if err := o.engine.Save(best.Model, o.cfg.ModelPath); err != nil {
		return automl.TrialResult{}, err
	}
	info, err := os.Stat(o.cfg.ModelPath)
	if err != nil {
		return automl.TrialResult{}, errors.NewIOError("stat", o.cfg.ModelPath, err)
	}
	logger.Info("Model saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, o.cfg.ModelPath,
		log.DataSizeKey, info.Size(),
	)
	if err := o.reporter.PrintSaved(o.cfg.ModelPath, info.Size()); err != nil {
		return automl.TrialResult{}, err
	}

	if chart != nil {
		if err := chart.Save(o.cfg.ChartPath); err != nil {
			return automl.TrialResult{}, err
		}
		logger.Info("Trial chart written", log.PathKey, o.cfg.ChartPath)
	}

	logger.Info("Experiment finished", log.DurationSecondsKey, time.Since(start).Seconds())
	return best, nil
}

// PredictOne loads the saved model, scores text and prints the prediction.
func (o *Orchestrator) PredictOne(ctx context.Context, text string) (automl.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return automl.Prediction{}, err
	}
	m, err := o.engine.Load(o.cfg.ModelPath, automl.SentimentSchema())
	if err != nil {
		return automl.Prediction{}, err
	}
	p, err := o.engine.Predict(m, dataset.Sample{Text: text})
	if err != nil {
		return automl.Prediction{}, err
	}
	o.logger.Info("Prediction",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.LabelKey, p.Label,
		log.ConfidenceKey, p.Probability,
	)
	if err := o.reporter.PrintPrediction(text, p); err != nil {
		return automl.Prediction{}, err
	}
	return p, nil
}

func (o *Orchestrator) load(path string) ([]dataset.Sample, error) {
	samples, err := dataset.Load(path,
		dataset.WithHeader(o.cfg.HasHeader),
		dataset.WithDelimiter(o.cfg.DelimiterRune()),
	)
	if err != nil {
		return nil, err
	}
	dataset.Summary(o.logger, path, samples)
	return samples, nil
}

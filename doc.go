// Package sentiml is an AutoML sample for binary text sentiment: it searches
// for the best toxic/non-toxic comment classifier within a time budget,
// reports every trial on the console, saves the winner and scores new text
// with the saved model.
//
// # Packages
//
//   - dataset: loads tab-separated (text, label) files
//   - automl: candidate pipelines, the time-boxed search, evaluation and model artifacts
//   - report: console tables, banners and the per-trial progress handler
//   - experiment: configuration and the run/predict orchestration
//   - sklearn/linear_model, sklearn/naive_bayes: the trainers the search picks from
//   - preprocessing: tokenization and TF-IDF/count featurization
//   - metrics: classification, regression and ranking metrics
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Quick Start
//
// Run the sample with the bundled data:
//
//	go run ./examples/sentiment_automl
//
// It trains for 60 seconds, prints the best trial and its test metrics, saves
// SentimentModel.bin and prints
//
//	Text: This is a very rude movie | Prediction: Toxic sentiment
//
// Programmatic use goes through experiment.Orchestrator:
//
//	cfg := experiment.DefaultConfig()
//	o, err := experiment.New(cfg, experiment.EngineFromConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best, err := o.RunExperiment(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(best.Trainer, best.Metrics.Accuracy())
//
// # Error Handling
//
// Fatal conditions surface as typed errors from pkg/errors: IOError for
// unreadable files, SchemaError for malformed rows, ModelLoadError for bad
// artifacts and TrialFailure for a single failed search trial. Trial failures
// are reported and skipped; the others abort the run.
//
// # License
//
// sentiml is released under the MIT License.
package sentiml

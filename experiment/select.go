package experiment

import (
	"math"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// ErrNoValidTrial is returned when no trial has a defined validation accuracy.
var ErrNoValidTrial = errors.New("no trial produced a defined validation accuracy")

// SelectBest returns the trial with the highest validation accuracy.
//
// Failed trials and trials whose accuracy is NaN are skipped. Among equal
// accuracies the earliest trial wins.
func SelectBest(results []automl.TrialResult) (automl.TrialResult, error) {
	best := -1
	bestAcc := math.Inf(-1)
	for i, r := range results {
		if r.Failed() {
			continue
		}
		acc := r.Metrics.Accuracy()
		if math.IsNaN(acc) {
			continue
		}
		if best < 0 || acc > bestAcc {
			best, bestAcc = i, acc
		}
	}
	if best < 0 {
		return automl.TrialResult{}, errors.Wrapf(ErrNoValidTrial, "%d trials", len(results))
	}
	return results[best], nil
}

// Package experiment drives the sentiment AutoML workflow end to end: load
// data, search, select the best trial, evaluate, persist, and score single
// texts with the persisted model.
package experiment

import (
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/pkg/log"
)

// Config holds every path and knob of an experiment run.
type Config struct {
	TrainDataPath     string `yaml:"train_data_path"`
	TestDataPath      string `yaml:"test_data_path"`
	ModelPath         string `yaml:"model_path"`
	TimeBudgetSeconds int    `yaml:"time_budget_seconds"`
	PreviewRows       int    `yaml:"preview_rows"`
	TableWidth        int    `yaml:"table_width"`

	HasHeader bool   `yaml:"has_header"`
	Delimiter string `yaml:"delimiter"`

	ValidationFraction float64 `yaml:"validation_fraction"`
	Seed               int64   `yaml:"seed"`
	Parallelism        int     `yaml:"parallelism"`
	MaxTrials          int     `yaml:"max_trials"`
	MaxFeatures        int     `yaml:"max_features"`

	// ChartPath, when set, receives a PNG of validation accuracy per trial.
	ChartPath string `yaml:"chart_path"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		TrainDataPath:      "data/wikipedia-detox-250-line-data.tsv",
		TestDataPath:       "data/wikipedia-detox-250-line-test.tsv",
		ModelPath:          "SentimentModel.bin",
		TimeBudgetSeconds:  60,
		PreviewRows:        4,
		TableWidth:         114,
		HasHeader:          true,
		Delimiter:          "\t",
		ValidationFraction: 0.2,
		Seed:               1,
		MaxFeatures:        5000,
		LogLevel:           "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.NewIOError("read", path, err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid field as a ValidationError.
func (c Config) Validate() error {
	switch {
	case c.TrainDataPath == "":
		return errors.NewValidationError("train_data_path", "must not be empty", c.TrainDataPath)
	case c.TestDataPath == "":
		return errors.NewValidationError("test_data_path", "must not be empty", c.TestDataPath)
	case c.ModelPath == "":
		return errors.NewValidationError("model_path", "must not be empty", c.ModelPath)
	case c.TimeBudgetSeconds <= 0:
		return errors.NewValidationError("time_budget_seconds", "must be positive", c.TimeBudgetSeconds)
	case c.PreviewRows < 0:
		return errors.NewValidationError("preview_rows", "must not be negative", c.PreviewRows)
	case c.TableWidth < 40:
		return errors.NewValidationError("table_width", "must be at least 40", c.TableWidth)
	case utf8.RuneCountInString(c.Delimiter) != 1:
		return errors.NewValidationError("delimiter", "must be a single character", c.Delimiter)
	case c.ValidationFraction <= 0 || c.ValidationFraction >= 1:
		return errors.NewValidationError("validation_fraction", "must be in (0, 1)", c.ValidationFraction)
	case c.Parallelism < 0:
		return errors.NewValidationError("parallelism", "must not be negative", c.Parallelism)
	case c.MaxTrials < 0:
		return errors.NewValidationError("max_trials", "must not be negative", c.MaxTrials)
	case c.MaxFeatures < 0:
		return errors.NewValidationError("max_features", "must not be negative", c.MaxFeatures)
	}
	_, err := log.ParseLevel(c.LogLevel)
	return err
}

// TimeBudget returns the search budget.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

// DelimiterRune returns the field delimiter.
func (c Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

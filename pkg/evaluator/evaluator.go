// Package evaluator scores candidate passwords against a fixed battery of
// hygiene heuristics.
//
// Evaluation runs in three stages that can also be called on their own:
//
//	checks := ev.Checks(password)               // pattern checks
//	score := ev.Score(password, checks)         // 0-100 score
//	report := ev.Present(password, checks, score)
//
// An Evaluator holds only immutable configuration and the package-level
// word lists are read-only, so one Evaluator may be shared by any number
// of goroutines.
package evaluator

import (
	"github.com/exploopio/passcheck/pkg/errors"
)

// Config holds the evaluator parameters.
type Config struct {
	// MinLength is the minimum password length in characters.
	// Default: 10
	MinLength int `yaml:"min_length" mapstructure:"min_length"`

	// MaxRepeat is the longest allowed run of one repeated character.
	// Default: 2
	MaxRepeat int `yaml:"max_repeat" mapstructure:"max_repeat"`

	// MinSequenceLength is the shortest keyboard or alphabet run that
	// counts as a sequential pattern.
	// Default: 4
	MinSequenceLength int `yaml:"min_sequence_length" mapstructure:"min_sequence_length"`
}

// DefaultConfig returns the standard evaluator parameters.
func DefaultConfig() Config {
	return Config{
		MinLength:         10,
		MaxRepeat:         2,
		MinSequenceLength: 4,
	}
}

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	if c.MinLength < 1 {
		return errors.E(errors.KindInvalidInput, "evaluator.Config", "min_length must be positive")
	}
	if c.MaxRepeat < 1 {
		return errors.E(errors.KindInvalidInput, "evaluator.Config", "max_repeat must be positive")
	}
	if c.MinSequenceLength < 2 {
		return errors.E(errors.KindInvalidInput, "evaluator.Config", "min_sequence_length must be at least 2")
	}
	return nil
}

// Evaluator runs the checks, scorer, and presenter.
type Evaluator struct {
	cfg Config
}

// New creates an evaluator with the given configuration.
func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Default returns an evaluator with DefaultConfig.
func Default() *Evaluator {
	return &Evaluator{cfg: DefaultConfig()}
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate runs all three stages and returns the report. It never fails:
// any string, including the empty string, produces a report.
func (e *Evaluator) Evaluate(password string) *Report {
	checks := e.Checks(password)
	score := e.Score(password, checks)
	return e.Present(password, checks, score)
}

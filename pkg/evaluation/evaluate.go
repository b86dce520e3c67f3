package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/CTAG07/Nepenthes/pkg/ngram"
	"gopkg.in/yaml.v3"
)

// Result is the score of one sequence under one order.
type Result struct {
	Sequence       string  `yaml:"sequence" json:"sequence"`
	Order          int     `yaml:"order" json:"order"`
	Probability    float64 `yaml:"probability" json:"probability"`
	LogProbability float64 `yaml:"log_probability" json:"log_probability"`
}

// Report is the outcome of an evaluation run.
type Report struct {
	Suite   string   `yaml:"suite" json:"suite"`
	Config  Config   `yaml:"config" json:"config"`
	Results []Result `yaml:"results" json:"results"`

	// Best maps each sequence name to the order that gave it the highest
	// log-probability. Ties go to the lower order.
	Best map[string]int `yaml:"best" json:"best"`
}

// MeanLogProbability returns the mean log-probability over every sequence
// scored at order n, or 0 if none was.
func (r *Report) MeanLogProbability(n int) float64 {
	var sum float64
	var count int
	for _, res := range r.Results {
		if res.Order == n {
			sum += res.LogProbability
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// WriteYAML encodes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Evaluator scores suites against a single model.
type Evaluator struct {
	logger *slog.Logger
	model  *ngram.Model
	config Config
}

// NewEvaluator returns an Evaluator for model. A nil logger discards all
// output. The config is validated here so Run never sees a bad range.
func NewEvaluator(logger *slog.Logger, model *ngram.Model, cfg Config) (*Evaluator, error) {
	if model == nil {
		return nil, errors.New("evaluator requires a model")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{
		logger: logger,
		model:  model,
		config: cfg,
	}, nil
}

// Config returns the Evaluator's configuration.
func (e *Evaluator) Config() Config {
	return e.config
}

// Run scores every sequence of suite for every configured order. Results
// are ordered by sequence, then by ascending order.
func (e *Evaluator) Run(ctx context.Context, suite *Suite) (*Report, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		Suite:  suite.Name,
		Config: e.config,
		Best:   make(map[string]int, len(suite.Sequences)),
	}

	for _, seq := range suite.Sequences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := math.Inf(-1)
		for n := e.config.MinOrder; n <= e.config.MaxOrder; n++ {
			var logProb float64
			if e.config.Smoothed {
				logProb = e.model.SmoothedLogProbability(seq.Text, n)
			} else {
				logProb = e.model.LogProbability(seq.Text, n)
			}
			report.Results = append(report.Results, Result{
				Sequence:       seq.Name,
				Order:          n,
				Probability:    math.Exp(logProb),
				LogProbability: logProb,
			})
			if logProb > best {
				best = logProb
				report.Best[seq.Name] = n
			}
		}

		e.logger.DebugContext(ctx, "Sequence evaluated",
			slog.String("sequence", seq.Name),
			slog.Int("best_order", report.Best[seq.Name]),
		)
	}

	e.logger.InfoContext(ctx, "Evaluation finished",
		slog.String("suite", suite.Name),
		slog.Int("sequences", len(suite.Sequences)),
		slog.Int("min_order", e.config.MinOrder),
		slog.Int("max_order", e.config.MaxOrder),
		slog.Bool("smoothed", e.config.Smoothed),
	)
	return report, nil
}

package ngram

import (
	"math"
	"slices"
)

// DefaultEpsilon replaces the count of an n-gram missing from the table so
// that a single unseen window never zeroes a whole sequence.
const DefaultEpsilon = 0.0001

// scoreOptions Is used by the scoring functions to configure default options.
type scoreOptions struct {
	epsilon float64
}

// ScoreOption is a function that configures sequence scoring.
type ScoreOption func(*scoreOptions)

// WithEpsilon sets the floor used for missing numerator counts. Non-positive
// values are ignored.
func WithEpsilon(eps float64) ScoreOption {
	return func(o *scoreOptions) {
		if eps > 0 {
			o.epsilon = eps
		}
	}
}

// LogProbability returns the natural-log probability of sequence under the
// order of counts, using context (the table one order lower) as the
// denominator of every conditional.
//
// For each window of the sequence it adds log(count(window)) and subtracts
// log(count(window without its last token)). A missing window counts as the
// epsilon floor; a missing context counts as 1, so an unseen context adds no
// penalty of its own. Windows holding a degenerate token are never counted
// in a table and are skipped here too. A sequence shorter than the order has
// no windows and scores 0 (probability 1).
func LogProbability(sequence []string, counts, context *Table, opts ...ScoreOption) float64 {
	options := &scoreOptions{epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(options)
	}

	n := counts.Order()
	if n <= 0 || len(sequence) < n {
		return 0
	}

	var logProb float64
	for i := 0; i+n <= len(sequence); i++ {
		window := sequence[i : i+n]
		if slices.ContainsFunc(window, isDegenerate) {
			continue
		}

		num, ok := counts.Count(Key(window))
		if !ok || num <= 0 {
			num = options.epsilon
		}
		den, ok := context.Count(Key(window[:n-1]))
		if !ok || den <= 0 {
			den = 1
		}
		logProb += math.Log(num) - math.Log(den)
	}
	return logProb
}

// Probability is LogProbability mapped back out of log space.
func Probability(sequence []string, counts, context *Table, opts ...ScoreOption) float64 {
	return math.Exp(LogProbability(sequence, counts, context, opts...))
}

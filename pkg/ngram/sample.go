package ngram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	// DefaultEOSProbability is the chance of ending the sentence after each
	// sampled word.
	DefaultEOSProbability = 0.05
	// DefaultMaxLength caps the number of words in a sampled sentence.
	DefaultMaxLength = 100
)

var (
	// ErrNoContinuation is returned when no n-gram in the corpus continues the
	// current sampling context.
	ErrNoContinuation = errors.New("no corpus continuation found")
	// ErrUnknownSeedToken is returned when a seed word is not in the corpus.
	ErrUnknownSeedToken = errors.New("seed token not found in corpus vocabulary")
)

// RandSource supplies uniform draws in [0, 1). *rand.Rand from math/rand/v2
// satisfies it.
type RandSource interface {
	Float64() float64
}

// globalRand draws from the math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// sampleOptions Is used by the sampling functions to configure default options.
type sampleOptions struct {
	eos       float64
	rng       RandSource
	maxLength int
	smoothed  bool
}

// SampleOption is a function that configures sampling. It's used as a
// variadic argument in Sample and SampleFromString.
type SampleOption func(*sampleOptions)

// WithEOSProbability sets the probability of stopping after each sampled
// word. A value of 1 stops after the first extension.
func WithEOSProbability(p float64) SampleOption {
	return func(o *sampleOptions) { o.eos = p }
}

// WithRand sets the random source for every draw, which makes sampling
// reproducible.
func WithRand(r RandSource) SampleOption {
	return func(o *sampleOptions) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithMaxLength caps the number of words in the sentence. A value of 0 or
// less removes the cap.
func WithMaxLength(n int) SampleOption {
	return func(o *sampleOptions) { o.maxLength = n }
}

// WithSmoothedSampling chooses whether continuations come from smoothed
// tables, where unseen arrangements carry the smoothing constant, or only
// from observed n-grams.
func WithSmoothedSampling(smoothed bool) SampleOption {
	return func(o *sampleOptions) { o.smoothed = smoothed }
}

// samplerPhase tracks where a sentence is in its growth.
type samplerPhase int

const (
	phaseInitial  samplerPhase = iota // no words yet
	phaseGrowing                      // shorter than the order, context shrinks
	phaseStable                       // full order context
	phaseTerminal                     // stopping condition met
)

func (p samplerPhase) String() string {
	switch p {
	case phaseInitial:
		return "initial"
	case phaseGrowing:
		return "growing"
	case phaseStable:
		return "stable"
	case phaseTerminal:
		return "terminal"
	}
	return "unknown"
}

// Sample generates a sentence under the order-n model.
//
// The first word is drawn from the unigram table. Each following word is
// drawn from the table of order min(n, len(sentence)+1), restricted to keys
// whose leading words equal the end of the sentence. After every extension a
// fresh draw at or below the end-of-sentence probability stops the sentence.
// An order below 1 yields an empty sentence.
func (m *Model) Sample(ctx context.Context, n int, opts ...SampleOption) ([]string, error) {
	return m.sample(ctx, nil, n, opts...)
}

// SampleFromString continues the sentence given by seed. Every seed word must
// occur in the corpus; otherwise the error wraps ErrUnknownSeedToken. An
// empty seed behaves like Sample.
func (m *Model) SampleFromString(ctx context.Context, seed string, n int, opts ...SampleOption) ([]string, error) {
	words := m.sequenceTokens(seed)
	seedTokens := make([]string, 0, len(words))
	for _, w := range words {
		if isDegenerate(w) {
			continue
		}
		if _, ok := m.Table(1).Count(w); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSeedToken, w)
		}
		seedTokens = append(seedTokens, w)
	}
	return m.sample(ctx, seedTokens, n, opts...)
}

// sample contains the main loop for growing a sentence.
func (m *Model) sample(ctx context.Context, seed []string, n int, opts ...SampleOption) ([]string, error) {
	options := &sampleOptions{
		eos:       DefaultEOSProbability,
		rng:       globalRand{},
		maxLength: DefaultMaxLength,
		smoothed:  true,
	}
	for _, opt := range opts {
		opt(options)
	}

	if n < 1 {
		m.logger.DebugContext(ctx, "Sampling skipped for non-positive order", slog.Int("order", n))
		return []string{}, nil
	}

	sentence := append([]string{}, seed...)
	phase := phaseInitial

	if len(sentence) == 0 {
		candidates := m.table(1, options.smoothed).Continuations(nil)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w for empty context", ErrNoContinuation)
		}
		sentence = append(sentence, drawCandidate(candidates, options.rng).Token)
	}

	for phase != phaseTerminal {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if options.maxLength > 0 && len(sentence) >= options.maxLength {
			m.logger.DebugContext(ctx, "Sampling terminated by reaching maxLength",
				slog.Int("order", n),
				slog.Int("max_length", options.maxLength),
			)
			break
		}

		currN := min(n, len(sentence)+1)
		if len(sentence) < n {
			phase = phaseGrowing
		} else {
			phase = phaseStable
		}

		history := sentence[len(sentence)-(currN-1):]
		candidates := m.table(currN, options.smoothed).Continuations(history)
		if len(candidates) == 0 {
			m.logger.DebugContext(ctx, "Sampling hit a dead end",
				slog.String("phase", phase.String()),
				slog.String("context", Key(history)),
				slog.Int("generated_length", len(sentence)),
			)
			return nil, fmt.Errorf("%w for context %q", ErrNoContinuation, Key(history))
		}
		sentence = append(sentence, drawCandidate(candidates, options.rng).Token)

		if options.rng.Float64() <= options.eos {
			phase = phaseTerminal
		}
	}

	m.logger.DebugContext(ctx, "Sentence sampled",
		slog.Int("order", n),
		slog.Int("generated_length", len(sentence)),
	)
	return sentence, nil
}

// drawCandidate picks a candidate with probability proportional to its
// weight. The draw is located by a linear scan over cumulative ranges; a draw
// that falls past the last range, through rounding, selects the last
// candidate.
func drawCandidate(candidates []Candidate, rng RandSource) Candidate {
	var total float64
	for _, c := range candidates {
		total += c.Weight
	}

	u := rng.Float64()
	var cumulative float64
	for _, c := range candidates {
		cumulative += c.Weight / total
		if u < cumulative {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

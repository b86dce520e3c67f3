package ngram

import (
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultTableCacheSize is the number of frequency tables a Model keeps
// memoised by default.
const DefaultTableCacheSize = 16

// tableKey identifies a cached table.
type tableKey struct {
	order    int
	smoothed bool
}

// modelOptions Is used by NewModel to configure default options.
type modelOptions struct {
	tokenizer  Tokenizer
	smoothingK float64
	epsilon    float64
	cacheSize  int
}

// ModelOption is a function that configures a Model.
type ModelOption func(*modelOptions)

// WithTokenizer sets the tokenizer used for the corpus and for every
// sequence passed to the Model.
func WithTokenizer(t Tokenizer) ModelOption {
	return func(o *modelOptions) {
		if t != nil {
			o.tokenizer = t
		}
	}
}

// WithSmoothingK sets the pseudo-count used by smoothed tables.
func WithSmoothingK(k float64) ModelOption {
	return func(o *modelOptions) { o.smoothingK = k }
}

// WithModelEpsilon sets the floor for missing numerator counts when scoring.
func WithModelEpsilon(eps float64) ModelOption {
	return func(o *modelOptions) { o.epsilon = eps }
}

// WithTableCacheSize sets how many tables are memoised. A value of 0 or less
// disables the cache and every request rebuilds its table.
func WithTableCacheSize(n int) ModelOption {
	return func(o *modelOptions) { o.cacheSize = n }
}

// Model is the main entry point of the package. It holds a normalised corpus
// and its vocabulary and hands out frequency tables of any order.
type Model struct {
	tokenizer  Tokenizer
	tokens     []string
	vocab      []string
	smoothingK float64
	epsilon    float64
	cache      *lru.Cache
	logger     *slog.Logger
}

// NewModel tokenizes text and returns a Model over it. An error is returned
// only if the table cache cannot be created.
func NewModel(text string, opts ...ModelOption) (*Model, error) {
	options := &modelOptions{
		smoothingK: DefaultSmoothingK,
		epsilon:    DefaultEpsilon,
		cacheSize:  DefaultTableCacheSize,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.tokenizer == nil {
		options.tokenizer = NewDefaultTokenizer()
	}

	m := &Model{
		tokenizer:  options.tokenizer,
		smoothingK: options.smoothingK,
		epsilon:    options.epsilon,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.tokens = m.tokenizer.Tokens(text)
	m.vocab = Vocabulary(m.tokens)

	if options.cacheSize > 0 {
		cache, err := lru.New(options.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("could not create table cache: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Tokenizer returns the tokenizer the Model was built with.
func (m *Model) Tokenizer() Tokenizer {
	return m.tokenizer
}

// Tokens returns a copy of the normalised corpus.
func (m *Model) Tokens() []string {
	tokens := make([]string, len(m.tokens))
	copy(tokens, m.tokens)
	return tokens
}

// Vocabulary returns a copy of the distinct corpus tokens in order of first
// occurrence.
func (m *Model) Vocabulary() []string {
	vocab := make([]string, len(m.vocab))
	copy(vocab, m.vocab)
	return vocab
}

// Table returns the unsmoothed frequency table of order n.
func (m *Model) Table(n int) *Table {
	return m.table(n, false)
}

// SmoothedTable returns the frequency table of order n with floor smoothing
// using the Model's smoothing constant.
func (m *Model) SmoothedTable(n int) *Table {
	return m.table(n, true)
}

func (m *Model) table(n int, smoothed bool) *Table {
	key := tableKey{order: n, smoothed: smoothed}
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			return v.(*Table)
		}
	}

	var opts []TableOption
	if smoothed {
		opts = append(opts, WithSmoothing(m.smoothingK))
	}
	t := BuildTable(m.tokens, n, opts...)

	m.logger.Debug("Frequency table built",
		slog.Int("order", n),
		slog.Bool("smoothed", smoothed),
		slog.Int("keys", t.Len()),
	)

	if m.cache != nil {
		m.cache.Add(key, t)
	}
	return t
}

// sequenceTokens tokenizes a sequence the same way as the corpus. A sequence
// that normalises to nothing has no tokens.
func (m *Model) sequenceTokens(sequence string) []string {
	if m.tokenizer.Normalize(sequence) == "" {
		return nil
	}
	return m.tokenizer.Tokens(sequence)
}

// LogProbability scores sequence with the unsmoothed tables of order n and
// n-1. See the package-level LogProbability for the exact rule.
func (m *Model) LogProbability(sequence string, n int) float64 {
	return LogProbability(m.sequenceTokens(sequence), m.Table(n), m.Table(n-1), WithEpsilon(m.epsilon))
}

// SmoothedLogProbability is LogProbability over smoothed tables.
func (m *Model) SmoothedLogProbability(sequence string, n int) float64 {
	return LogProbability(m.sequenceTokens(sequence), m.SmoothedTable(n), m.SmoothedTable(n-1), WithEpsilon(m.epsilon))
}

// Probability returns the probability of sequence under the order-n model.
// Sequences shorter than n score 1.
func (m *Model) Probability(sequence string, n int) float64 {
	return Probability(m.sequenceTokens(sequence), m.Table(n), m.Table(n-1), WithEpsilon(m.epsilon))
}

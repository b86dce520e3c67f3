package ngram

import (
	"strings"
)

// DefaultPunctuation is the ASCII punctuation set removed during
// normalisation.
const DefaultPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Tokenizer is an interface that defines the contract for turning raw text
// into corpus tokens. This allows the model to be independent of the
// specific normalisation strategy.
type Tokenizer interface {
	// Normalize returns the cleaned form of text that Tokens splits.
	Normalize(text string) string
	// Tokens returns the normalised token sequence for text. No token may
	// contain KeySeparator.
	Tokens(text string) []string
}

// DefaultTokenizer is the default implementation of the Tokenizer interface.
// It lowercases text, strips punctuation, collapses newlines into spaces,
// trims the result and splits it on a single separator.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator   string
	punctuation string
	drop        func(rune) rune
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithPunctuation sets the characters removed from the text.
// Default: DefaultPunctuation
func WithPunctuation(set string) Option {
	return func(t *DefaultTokenizer) {
		t.punctuation = set
	}
}

// WithSeparator sets the string used for splitting normalised text.
// KeySeparator is always a token boundary as well.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator:   KeySeparator,
		punctuation: DefaultPunctuation,
	}

	for _, opt := range opts {
		opt(t)
	}

	punct := t.punctuation
	t.drop = func(r rune) rune {
		if strings.ContainsRune(punct, r) {
			return -1
		}
		return r
	}
	return t
}

// Normalize lowercases text, removes punctuation, turns newlines into
// spaces and trims leading and trailing whitespace.
func (t *DefaultTokenizer) Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(t.drop, text)
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

// Tokens splits the normalised text on the separator. Consecutive
// separators produce empty tokens, and an empty text yields a single empty
// token; both are degenerate and never reach a frequency table.
//
// Tokens never contain KeySeparator, since n-gram keys are joined with it.
// With a custom separator, each piece is split on KeySeparator as well.
func (t *DefaultTokenizer) Tokens(text string) []string {
	pieces := strings.Split(t.Normalize(text), t.separator)
	if t.separator == KeySeparator {
		return pieces
	}
	tokens := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		tokens = append(tokens, strings.Split(piece, KeySeparator)...)
	}
	return tokens
}

package ngram

import (
	"errors"
	"log/slog"
	"math"
)

// ErrEmptyVocabulary is returned when a prediction has no candidate words.
var ErrEmptyVocabulary = errors.New("no candidate words to extend the sequence with")

// Prediction is the best one-word extension of a prefix.
type Prediction struct {
	Sequence       []string // The prefix followed by Word.
	Word           string
	LogProbability float64
}

// Probability returns the score of the extended sequence.
func (p Prediction) Probability() float64 {
	return math.Exp(p.LogProbability)
}

// String returns the extended sequence as text.
func (p Prediction) String() string {
	return Key(p.Sequence)
}

// Predict scores prefix extended by each vocabulary word and returns the
// extension with the strictly highest score. When several extensions tie,
// the one whose word comes first in vocabulary wins, so passing the
// vocabulary in corpus order keeps the result stable.
func Predict(prefix, vocabulary []string, counts, context *Table, opts ...ScoreOption) (Prediction, error) {
	buf := make([]string, len(prefix)+1)
	copy(buf, prefix)

	var best Prediction
	found := false
	for _, word := range vocabulary {
		if isDegenerate(word) {
			continue
		}
		buf[len(prefix)] = word
		lp := LogProbability(buf, counts, context, opts...)
		if !found || lp > best.LogProbability {
			found = true
			best.Word = word
			best.LogProbability = lp
		}
	}
	if !found {
		return Prediction{}, ErrEmptyVocabulary
	}

	best.Sequence = make([]string, len(buf))
	copy(best.Sequence, prefix)
	best.Sequence[len(prefix)] = best.Word
	return best, nil
}

// Predict returns the most likely one-word extension of prefix under the
// order-n model, considering every distinct corpus word once.
func (m *Model) Predict(prefix string, n int) (Prediction, error) {
	p, err := Predict(m.sequenceTokens(prefix), m.vocab, m.Table(n), m.Table(n-1), WithEpsilon(m.epsilon))
	if err != nil {
		return Prediction{}, err
	}
	m.logger.Debug("Next word predicted",
		slog.Int("order", n),
		slog.String("word", p.Word),
		slog.Int("candidates", len(m.vocab)),
	)
	return p, nil
}

package ngram

// UnknownRate returns the share of validation tokens that never occur in the
// training tokens. Degenerate tokens are ignored on both sides; an empty
// validation set has a rate of 0.
func UnknownRate(training, validation []string) float64 {
	known := make(map[string]struct{}, len(training))
	for _, tok := range training {
		known[tok] = struct{}{}
	}

	var total, unknown int
	for _, tok := range validation {
		if isDegenerate(tok) {
			continue
		}
		total++
		if _, ok := known[tok]; !ok {
			unknown++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(unknown) / float64(total)
}

// UnknownRateByThreshold returns the share of unigram types whose count is
// below threshold, i.e. the words that would be mapped to an unknown token
// under a frequency cutoff.
func UnknownRateByThreshold(unigrams *Table, threshold float64) float64 {
	if unigrams.Len() == 0 {
		return 0
	}
	var rare int
	for _, key := range unigrams.keys {
		if unigrams.counts[key] < threshold {
			rare++
		}
	}
	return float64(rare) / float64(unigrams.Len())
}

// UnknownRate tokenizes validation text with the Model's tokenizer and
// returns the share of its words missing from the corpus.
func (m *Model) UnknownRate(validation string) float64 {
	return UnknownRate(m.tokens, m.sequenceTokens(validation))
}

package evaluation

import (
	"math"
	"testing"

	"github.com/CTAG07/Nepenthes/pkg/ngram"
)

const testCorpus = "the cat sat. the dog sat."

func setupTestModel(tb testing.TB) *ngram.Model {
	tb.Helper()
	m, err := ngram.NewModel(testCorpus)
	if err != nil {
		tb.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func approxEqual(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9*math.Max(1, math.Abs(want))
}

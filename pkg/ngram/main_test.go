package ngram

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const testCorpus = "the cat sat. the dog sat."

// setupTestModel builds a Model over testCorpus, or over text if given.
func setupTestModel(t *testing.T, text string, opts ...ModelOption) *Model {
	t.Helper()
	if text == "" {
		text = testCorpus
	}
	m, err := NewModel(text, opts...)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

// sequenceRand returns its values in order and then repeats the last one.
type sequenceRand struct {
	values []float64
	i      int
}

func (r *sequenceRand) Float64() float64 {
	v := r.values[r.i]
	if r.i < len(r.values)-1 {
		r.i++
	}
	return v
}

func fixedRand(values ...float64) *sequenceRand {
	return &sequenceRand{values: values}
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}

package evaluation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func testSuite() *Suite {
	return &Suite{
		Name: "animals",
		Sequences: []Sequence{
			{Name: "cat", Text: "the cat sat"},
			{Name: "dog", Text: "dog"},
		},
	}
}

func TestNewEvaluator(t *testing.T) {
	if _, err := NewEvaluator(nil, nil, DefaultConfig()); err == nil {
		t.Error("expected an error for a nil model")
	}
	_, err := NewEvaluator(nil, setupTestModel(t), Config{MinOrder: 2, MaxOrder: 1})
	if !errors.Is(err, ErrInvalidOrderRange) {
		t.Errorf("expected ErrInvalidOrderRange, got %v", err)
	}
	e, err := NewEvaluator(nil, setupTestModel(t), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	if e.Config() != DefaultConfig() {
		t.Errorf("Config() got = %+v, want %+v", e.Config(), DefaultConfig())
	}
}

func TestEvaluatorRun(t *testing.T) {
	e, err := NewEvaluator(nil, setupTestModel(t), Config{MinOrder: 1, MaxOrder: 2})
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	report, err := e.Run(context.Background(), testSuite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Result{
		// 2/6 * 1/6 * 2/6
		{Sequence: "cat", Order: 1, Probability: 1.0 / 54.0},
		// "the cat" 1/2, "cat sat" 1/1
		{Sequence: "cat", Order: 2, Probability: 0.5},
		{Sequence: "dog", Order: 1, Probability: 1.0 / 6.0},
		// Shorter than the order.
		{Sequence: "dog", Order: 2, Probability: 1},
	}
	if len(report.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(report.Results))
	}
	for i, w := range want {
		got := report.Results[i]
		if got.Sequence != w.Sequence || got.Order != w.Order || !approxEqual(got.Probability, w.Probability) {
			t.Errorf("result %d got = %+v, want %+v", i, got, w)
		}
	}

	if report.Best["cat"] != 2 || report.Best["dog"] != 2 {
		t.Errorf("Best got = %v, want cat:2 dog:2", report.Best)
	}
	if report.Suite != "animals" {
		t.Errorf("Suite got = %q, want %q", report.Suite, "animals")
	}
}

func TestEvaluatorRunSmoothed(t *testing.T) {
	e, err := NewEvaluator(nil, setupTestModel(t), Config{MinOrder: 2, MaxOrder: 2, Smoothed: true})
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	suite := &Suite{Name: "unseen", Sequences: []Sequence{{Name: "dog cat", Text: "dog cat"}}}
	report, err := e.Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Unseen arrangement scores the smoothing constant over count("dog").
	if got := report.Results[0].Probability; !approxEqual(got, 0.01) {
		t.Errorf("smoothed Probability got = %v, want 0.01", got)
	}
}

func TestEvaluatorRunErrors(t *testing.T) {
	e, err := NewEvaluator(nil, setupTestModel(t), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	if _, err = e.Run(context.Background(), &Suite{}); !errors.Is(err, ErrEmptySuite) {
		t.Errorf("expected ErrEmptySuite, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err = e.Run(ctx, testSuite()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEvaluatorLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e, err := NewEvaluator(logger, setupTestModel(t), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	if _, err = e.Run(context.Background(), testSuite()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Evaluation finished") || !strings.Contains(buf.String(), "suite=animals") {
		t.Errorf("expected an info record for the run, got %q", buf.String())
	}
}

func TestReportMeanAndYAML(t *testing.T) {
	report := &Report{
		Suite:  "s",
		Config: DefaultConfig(),
		Results: []Result{
			{Sequence: "a", Order: 1, LogProbability: -2},
			{Sequence: "b", Order: 1, LogProbability: -4},
			{Sequence: "a", Order: 2, LogProbability: -1},
		},
		Best: map[string]int{"a": 2, "b": 1},
	}

	if got := report.MeanLogProbability(1); got != -3 {
		t.Errorf("MeanLogProbability(1) got = %v, want -3", got)
	}
	if got := report.MeanLogProbability(5); got != 0 {
		t.Errorf("MeanLogProbability(5) got = %v, want 0", got)
	}

	var buf bytes.Buffer
	if err := report.WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode written report: %v", err)
	}
	if decoded.Best["a"] != 2 || len(decoded.Results) != 3 || decoded.Config.MaxOrder != 4 {
		t.Errorf("decoded report differs: %+v", decoded)
	}
}

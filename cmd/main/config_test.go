package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Nepenthes/pkg/ngram"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nepenthes.json")

	config, err := LoadConfig(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Engine.SmoothingK != ngram.DefaultSmoothingK {
		t.Errorf("SmoothingK got = %v, want %v", config.Engine.SmoothingK, ngram.DefaultSmoothingK)
	}
	if _, err = os.Stat(path); err != nil {
		t.Errorf("expected the default config file to be written: %v", err)
	}

	// A second load reads the file that was just written.
	again, err := LoadConfig(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadConfig() second call error = %v", err)
	}
	if again.LogLevel != "info" || again.Evaluation.MaxOrder != 4 {
		t.Errorf("unexpected reloaded config %+v", again)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nepenthes.json")
	data := `{"log_level": "debug", "engine_config": {"smoothing_k": 0.5}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel got = %q, want %q", config.LogLevel, "debug")
	}
	if config.Engine.SmoothingK != 0.5 {
		t.Errorf("SmoothingK got = %v, want 0.5", config.Engine.SmoothingK)
	}
	if config.Engine.Epsilon != ngram.DefaultEpsilon {
		t.Errorf("Epsilon got = %v, want the default", config.Engine.Epsilon)
	}
	if config.Sampler == nil || config.Sampler.MaxLength != ngram.DefaultMaxLength {
		t.Errorf("expected default sampler config, got %+v", config.Sampler)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path, io.Discard); err == nil {
		t.Error("expected an error for malformed JSON")
	}

	// Explicit nulls are replaced by defaults.
	if err := os.WriteFile(path, []byte(`{"engine_config": null, "evaluation_config": null}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	config, err := LoadConfig(path, io.Discard)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Engine == nil || config.Evaluation == nil {
		t.Error("expected nil sections to be filled with defaults")
	}
}

func TestLoadConfigWarnsOnWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "nepenthes.json")

	var warn bytes.Buffer
	config, err := LoadConfig(path, &warn)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.LogLevel != "info" {
		t.Errorf("expected defaults, got log level %q", config.LogLevel)
	}
	if !strings.Contains(warn.String(), "failed to write default config file") {
		t.Errorf("expected a warning on the injected writer, got %q", warn.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	testCases := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warn":    "WARN",
		"error":   "ERROR",
		"verbose": "INFO",
	}
	for in, want := range testCases {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) got = %s, want %s", in, got, want)
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/CTAG07/Nepenthes/pkg/evaluation"
	"github.com/CTAG07/Nepenthes/pkg/ngram"
	"github.com/natefinch/atomic"
)

// EngineConfig holds the settings used to build every model.
type EngineConfig struct {
	SmoothingK      float64 `json:"smoothing_k"`
	Epsilon         float64 `json:"epsilon"`
	TableCacheSize  int     `json:"table_cache_size"`
	Punctuation     string  `json:"punctuation"`
	MaxSmoothedKeys int     `json:"max_smoothed_keys"`
}

// SamplerConfig holds the default sentence sampling settings.
type SamplerConfig struct {
	EOSProbability float64 `json:"eos_probability"`
	MaxLength      int     `json:"max_length"`
	Smoothed       bool    `json:"smoothed"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	LogLevel            string             `json:"log_level"`
	ResultsDatabasePath string             `json:"results_database_path"`
	Engine              *EngineConfig      `json:"engine_config"`
	Sampler             *SamplerConfig     `json:"sampler_config"`
	Evaluation          *evaluation.Config `json:"evaluation_config"`
}

// DefaultEngineConfig creates an engine configuration with default values.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		SmoothingK:      ngram.DefaultSmoothingK,
		Epsilon:         ngram.DefaultEpsilon,
		TableCacheSize:  ngram.DefaultTableCacheSize,
		Punctuation:     ngram.DefaultPunctuation,
		MaxSmoothedKeys: ngram.DefaultMaxSmoothedKeys,
	}
}

// DefaultSamplerConfig creates a sampler configuration with default values.
func DefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		EOSProbability: ngram.DefaultEOSProbability,
		MaxLength:      ngram.DefaultMaxLength,
		Smoothed:       true,
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	evalConfig := evaluation.DefaultConfig()
	return &Config{
		LogLevel:            "info",
		ResultsDatabasePath: "./data/nepenthes_results.db",
		Engine:              DefaultEngineConfig(),
		Sampler:             DefaultSamplerConfig(),
		Evaluation:          &evalConfig,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values. A failure
// to write that file is reported to warn and the defaults are still returned.
func LoadConfig(path string, warn io.Writer) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				_, _ = fmt.Fprintf(warn, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Sections missing from the file fall back to their defaults.
	if config.Engine == nil {
		config.Engine = DefaultEngineConfig()
	}
	if config.Sampler == nil {
		config.Sampler = DefaultSamplerConfig()
	}
	if config.Evaluation == nil {
		evalConfig := evaluation.DefaultConfig()
		config.Evaluation = &evalConfig
	}
	return config, nil
}

// modelOptions converts the engine settings into ngram.ModelOptions.
func (c *EngineConfig) modelOptions() []ngram.ModelOption {
	return []ngram.ModelOption{
		ngram.WithTokenizer(ngram.NewDefaultTokenizer(ngram.WithPunctuation(c.Punctuation))),
		ngram.WithSmoothingK(c.SmoothingK),
		ngram.WithModelEpsilon(c.Epsilon),
		ngram.WithTableCacheSize(c.TableCacheSize),
	}
}

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the watch-mode configuration.
type Config struct {
	Intake   IntakeConfig   `yaml:"intake"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Reports  ReportsConfig  `yaml:"reports"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// IntakeConfig contains drop-directory settings.
type IntakeConfig struct {
	Dir         string `yaml:"dir"`         // drop directory watched for archives
	Concurrency int    `yaml:"concurrency"` // parallel analyses (default: 2)
}

// AnalysisConfig contains pipeline tuning.
type AnalysisConfig struct {
	NovelAnomalyWindowMinutes int     `yaml:"novel_anomaly_window_minutes"` // lookback for novel anomalies (default: 30)
	Threshold                 float64 `yaml:"threshold"`                    // lexical match threshold (default: 0.75)
}

// ReportsConfig controls report artifacts.
type ReportsConfig struct {
	ExportDir string   `yaml:"export_dir"` // artifact directory (default: results)
	Formats   []string `yaml:"formats"`    // table formats (default: csv, xlsx)
}

// HistoryConfig controls run history persistence.
type HistoryConfig struct {
	Path string `yaml:"path"` // sqlite database path; empty disables history
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Address string `yaml:"address"` // listen address; empty disables metrics
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Intake.Concurrency == 0 {
		c.Intake.Concurrency = 2
	}
	if c.Analysis.NovelAnomalyWindowMinutes == 0 {
		c.Analysis.NovelAnomalyWindowMinutes = 30
	}
	if c.Reports.ExportDir == "" {
		c.Reports.ExportDir = "results"
	}
	if len(c.Reports.Formats) == 0 {
		c.Reports.Formats = []string{"csv", "xlsx"}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Intake.Concurrency < 0 {
		return fmt.Errorf("intake.concurrency must not be negative")
	}
	if c.Analysis.NovelAnomalyWindowMinutes < 0 {
		return fmt.Errorf("analysis.novel_anomaly_window_minutes must not be negative")
	}
	if c.Analysis.Threshold < 0 || c.Analysis.Threshold > 1 {
		return fmt.Errorf("analysis.threshold must be between 0 and 1")
	}
	if _, err := parseFormats(c.Reports.Formats); err != nil {
		return fmt.Errorf("reports.formats: %w", err)
	}
	return nil
}

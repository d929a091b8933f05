// Package pipeline composes schema resolution, backend dispatch, metric
// computation and artifact writing into the runnable analysis pipelines.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a malformed or missing run configuration field. It is
// fatal and surfaced immediately; nothing retries.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// Config is the declarative description of one run. It is immutable after
// Validate; pipelines never write back into it.
type Config struct {
	// InputPath is the table to analyse (.csv, or .db/.sqlite for SQLite).
	InputPath string `yaml:"input_path"`

	// OutputDir is the base directory run directories are allocated under.
	OutputDir string `yaml:"output_dir"`

	// Column overrides. Empty fields fall back to the canonical candidate
	// search.
	TimestampColumn   string `yaml:"timestamp_column,omitempty"`
	ValueColumn       string `yaml:"value_column,omitempty"`
	MeterIDColumn     string `yaml:"meter_id_column,omitempty"`
	GroundTruthColumn string `yaml:"ground_truth_column,omitempty"`

	// SQLiteTable names the table to read when the input is a SQLite
	// database with more than one table.
	SQLiteTable string `yaml:"sqlite_table,omitempty"`

	// TrainRatio in (0, 1) takes fallback baseline statistics from the
	// leading fraction of the series. Zero uses the full series.
	TrainRatio float64 `yaml:"train_ratio,omitempty"`

	// Horizon is the number of steps forecast runs predict. Zero means 24.
	Horizon int `yaml:"horizon,omitempty"`

	// SeasonLength is the repeat period of the reference forecaster.
	// Zero means 24.
	SeasonLength int `yaml:"season_length,omitempty"`

	// HoldoutEval withholds the final Horizon rows during forecast runs
	// and scores the forecast against them.
	HoldoutEval bool `yaml:"holdout_eval,omitempty"`

	// Synthetic, when set, generates a seasonal load series instead of
	// reading InputPath. Forecast runs only.
	Synthetic *SyntheticConfig `yaml:"synthetic,omitempty"`

	// Metadata is free-form and copied into the run results.
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// SyntheticConfig describes a generated seasonal load series. Generation is
// seeded and deterministic.
type SyntheticConfig struct {
	Rows      int     `yaml:"rows"`
	StartDate string  `yaml:"start_date,omitempty"` // accepted timestamp format; default 2024-01-01
	BaseLoad  float64 `yaml:"base_load,omitempty"`  // default 1000
	Seasonal  float64 `yaml:"seasonal_amplitude,omitempty"`
	Daily     float64 `yaml:"daily_amplitude,omitempty"`
	NoiseStd  float64 `yaml:"noise_std,omitempty"`
	Seed      int64   `yaml:"seed,omitempty"`
}

// LoadConfig reads a YAML run configuration and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config once, before any work. Later stages assume a
// validated config.
func (c *Config) Validate() error {
	if c.InputPath == "" && c.Synthetic == nil {
		return &ConfigError{Field: "input_path", Reason: "required unless synthetic generation is configured"}
	}
	if c.OutputDir == "" {
		return &ConfigError{Field: "output_dir", Reason: "required"}
	}
	if c.TrainRatio != 0 && (c.TrainRatio < 0 || c.TrainRatio >= 1) {
		return &ConfigError{Field: "train_ratio", Reason: fmt.Sprintf("must be in (0, 1), got %g", c.TrainRatio)}
	}
	if c.Horizon < 0 {
		return &ConfigError{Field: "horizon", Reason: fmt.Sprintf("must be non-negative, got %d", c.Horizon)}
	}
	if c.SeasonLength < 0 {
		return &ConfigError{Field: "season_length", Reason: fmt.Sprintf("must be non-negative, got %d", c.SeasonLength)}
	}
	if c.Synthetic != nil && c.Synthetic.Rows <= 0 {
		return &ConfigError{Field: "synthetic.rows", Reason: "must be positive"}
	}
	return nil
}

// horizonOrDefault returns the configured horizon, defaulting to 24.
func (c *Config) horizonOrDefault() int {
	if c.Horizon > 0 {
		return c.Horizon
	}
	return 24
}
